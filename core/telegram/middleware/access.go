package middleware

import tele "gopkg.in/telebot.v4"

// AdminOptions configure the admin gate. A zero AdminID disables it,
// which keeps local development with a test account simple.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware drops updates from everyone but the configured
// admin. Rejected updates invoke OnReject when set and are otherwise
// ignored without a reply.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			switch {
			case opts.AdminID == 0:
				return next(c)
			case user != nil && user.ID == opts.AdminID:
				return next(c)
			case opts.OnReject != nil:
				return opts.OnReject(c)
			default:
				return nil
			}
		}
	}
}
