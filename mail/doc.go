// Package mail delivers one-time codes.
//
// The auth service hands codes to a [Publisher], which queues them on
// RabbitMQ. A separate [Relay] process consumes the queue and sends each
// code over SMTP. [LogMailer] replaces both for local runs.
package mail
