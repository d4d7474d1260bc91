// Package email sends transactional mail.
//
// NewPostmarkClient sends through Postmark (github.com/mrz1836/postmark).
// DevSender logs messages and keeps them in memory so that local runs and
// tests need no mail provider:
//
//	var sender email.EmailSender = email.NewDevSender(logger)
//	if cfg.PostmarkServerToken != "" {
//		sender, err = email.NewPostmarkClient(cfg)
//	}
package email
