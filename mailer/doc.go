// Package mailer delivers verification codes over SMTP. It implements
// the engine's DeliverySink contract without importing the engine, so
// applications can swap it for SMS or push sinks.
package mailer
