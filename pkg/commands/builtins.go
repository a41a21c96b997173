package commands

import (
	"context"
	"time"

	"github.com/momobot/momo/pkg/bus"
	"github.com/momobot/momo/pkg/persona"
	"github.com/momobot/momo/pkg/providers"
)

const embedColor = 0xFF69B4

// MemberDirectory resolves guild members for the profile command.
type MemberDirectory interface {
	Member(ctx context.Context, guildID, userID string) (*bus.MemberProfile, error)
}

// LatencySource reports the gateway heartbeat round trip.
type LatencySource interface {
	GatewayLatency() time.Duration
}

// Deps are the collaborators the built-in handlers need.
type Deps struct {
	Completer providers.Completer
	Persona   persona.Persona
	Members   MemberDirectory
	Latency   LatencySource
	Now       func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func ptr(v float64) *float64 { return &v }

// Builtins returns MoMo's commands in load order. Two definitions share the
// name "xoa"; the first one loaded wins.
func Builtins(d Deps) []Command {
	return []Command{
		{
			Definition: Definition{Name: "about", Description: "Thông tin về MoMo Bot"},
			Handler:    aboutHandler(),
		},
		{
			Definition: Definition{
				Name:        "chat",
				Description: "Trò chuyện với MoMo",
				Options: []Option{
					{Name: "message", Description: "Tin nhắn của bạn", Type: OptionString, Required: true},
				},
			},
			Handler: chatHandler(d),
		},
		{
			Definition: Definition{
				Name:        "xoa",
				Description: "Xóa tin nhắn (tối đa 100)",
				Options: []Option{
					{Name: "amount", Description: "Số lượng tin nhắn cần xóa", Type: OptionInteger, MinValue: ptr(1), MaxValue: ptr(100)},
				},
			},
			Handler: purgeHandler(d, "amount", 10),
		},
		{
			Definition: Definition{
				Name:              "thongtin",
				Description:       "Hiển thị danh sách lệnh",
				NameLocalizations: map[string]string{"vi": "thôngtin"},
			},
			Handler: helpHandler(),
		},
		{
			Definition: Definition{
				Name:              "momodauroi",
				Description:       "Kiểm tra độ trễ của bot",
				NameLocalizations: map[string]string{"vi": "momodauroi"},
			},
			Handler: pingHandler(d),
		},
		{
			Definition: Definition{
				Name:        "hoso",
				Description: "Xem thông tin hồ sơ của thành viên",
				Options: []Option{
					{Name: "thanhvien", Description: "Chọn thành viên cần xem thông tin", Type: OptionUser},
				},
			},
			Handler: profileHandler(d),
		},
		{
			Definition: Definition{
				Name:        "xoa",
				Description: "Xóa tin nhắn trong kênh",
				Options: []Option{
					{Name: "soluong", Description: "Số lượng tin nhắn muốn xóa", Type: OptionInteger, Required: true, MinValue: ptr(1), MaxValue: ptr(100)},
				},
			},
			Handler: purgeHandler(d, "soluong", 0),
		},
	}
}
