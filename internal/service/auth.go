package service

import (
	tele "gopkg.in/telebot.v3"
)

// Restricted wraps a handler so only sudo users reach it. Everyone else is
// ignored without a reply, so the bot does not advertise its commands.
func (s *BotService) Restricted(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()
		if sender == nil || !s.bot.IsSudo(sender.ID) {
			if sender != nil {
				s.log.Warnf("ignoring command from non-sudo user %d", sender.ID)
			}
			return nil
		}
		return next(c)
	}
}
