package def

import "github.com/bwmarrin/discordgo"

var PingCommand = &discordgo.ApplicationCommand{
	Name:        "ping",
	Description: "Replies with Pong!",
	NameLocalizations: &map[discordgo.Locale]string{
		discordgo.Vietnamese: "ping",
	},
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.Vietnamese: "Kiểm tra độ trễ của bot",
	},
}
