// Package persona holds MoMo's voice: the instruction appended to every
// completion prompt and the fixed in-character strings shown to users.
package persona

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Persona struct {
	Name string `yaml:"name"`
	// Instruction tells the model how to speak. It is reused verbatim.
	Instruction string `yaml:"instruction"`
	// Speaker labels the user's line in the prompt.
	Speaker string `yaml:"speaker"`
	// Flourish is appended to the instruction for one-shot /chat prompts.
	Flourish string `yaml:"flourish"`

	Apology          string `yaml:"apology"`
	CommandApology   string `yaml:"command_apology"`
	Welcome          string `yaml:"welcome"`
	VoiceJoin        string `yaml:"voice_join"`
	PermissionDenied string `yaml:"permission_denied"`
	AgeLimit         string `yaml:"age_limit"`
	NothingToDelete  string `yaml:"nothing_to_delete"`
	ProfileError     string `yaml:"profile_error"`
}

// Default returns MoMo as shipped.
func Default() Persona {
	return Persona{
		Name:             "MoMo",
		Instruction:      `Hãy trả lời xưng hô như một nhân vật anime ngọt ngào, gọi người kia là "cậu" và xưng là "MoMo".`,
		Speaker:          "User (cậu - MoMo)",
		Flourish:         "٩(◕‿◕｡)۶",
		Apology:          "MoMo xin lỗi, MoMo không thể trả lời lúc này (╥﹏╥)",
		CommandApology:   "MoMo xin lỗi, đã có lỗi xảy ra khi thực hiện lệnh này (╥﹏╥)",
		Welcome:          "Yahoooo~ Chào mừng {user} đến với server của chúng mình! MoMo rất vui khi được gặp cậu ٩(◕‿◕｡)۶",
		VoiceJoin:        "Yay~ {user} vừa vào kênh thoại {channel}! Cùng trò chuyện nào ٩(◕‿◕｡)۶",
		PermissionDenied: "Cậu không có quyền xóa tin nhắn ┐(´д｀)┌",
		AgeLimit:         "Không thể xóa tin nhắn cũ hơn 14 ngày (╥﹏╥)",
		NothingToDelete:  "Không có tin nhắn nào có thể xóa được (>﹏<)",
		ProfileError:     "Có lỗi xảy ra khi hiển thị thông tin người dùng (╥﹏╥)",
	}
}

// Load returns Default overlaid with the non-empty keys of the YAML file at
// path. An empty path yields Default.
func Load(path string) (Persona, error) {
	p := Default()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read persona file: %w", err)
	}

	var override Persona
	if err := yaml.Unmarshal(data, &override); err != nil {
		return p, fmt.Errorf("parse persona file %s: %w", path, err)
	}
	p.merge(override)
	return p, nil
}

func (p *Persona) merge(o Persona) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&p.Name, o.Name)
	set(&p.Instruction, o.Instruction)
	set(&p.Speaker, o.Speaker)
	set(&p.Flourish, o.Flourish)
	set(&p.Apology, o.Apology)
	set(&p.CommandApology, o.CommandApology)
	set(&p.Welcome, o.Welcome)
	set(&p.VoiceJoin, o.VoiceJoin)
	set(&p.PermissionDenied, o.PermissionDenied)
	set(&p.AgeLimit, o.AgeLimit)
	set(&p.NothingToDelete, o.NothingToDelete)
	set(&p.ProfileError, o.ProfileError)
}

// WelcomeText renders the member-join greeting.
func (p Persona) WelcomeText(username string) string {
	return strings.NewReplacer("{user}", username).Replace(p.Welcome)
}

// VoiceJoinText renders the voice-join notice.
func (p Persona) VoiceJoinText(username, channel string) string {
	return strings.NewReplacer("{user}", username, "{channel}", channel).Replace(p.VoiceJoin)
}
