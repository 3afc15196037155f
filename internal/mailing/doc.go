// Package mailing renders campaign messages and provides the outbound mail
// transports.
//
// Personalize and Layout turn a campaign's subject and content into one
// domain.EmailMessage per recipient. The transports (simulation, SMTP, SES,
// Resend) implement sending.Transport; NewTransport picks one from
// configuration at startup.
package mailing
