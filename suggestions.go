/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const (
	suggestionSubject = "New Board Game Suggestion"
	maxSuggestionSize = 16 << 10
	mailTimeout       = 15 * time.Second
)

var errMailDisabled = errors.New("smtp is not configured")

type Suggestion struct {
	Text  string `json:"suggestion"`
	Email string `json:"email"`
}

func (s Suggestion) body() string {
	from := s.Email
	if from == "" {
		from = "Anonymous"
	}

	return fmt.Sprintf("Suggestion:\n\n%s\n\nFrom: %s", strings.TrimSpace(s.Text), from)
}

// Mailer delivers a suggestion to whoever maintains the game list.
type Mailer interface {
	Send(ctx context.Context, s Suggestion) error
}

type smtpMailer struct {
	cfg *Config
}

func newMailer(cfg *Config) Mailer {
	if !cfg.mailEnabled() {
		return nil
	}

	return &smtpMailer{cfg: cfg}
}

func (m *smtpMailer) Send(ctx context.Context, s Suggestion) error {
	msg := mail.NewMsg()

	sender := m.cfg.smtpUser
	if sender == "" {
		sender = m.cfg.recipient()
	}

	if err := msg.FromFormat("tabletally", sender); err != nil {
		return fmt.Errorf("setting sender: %w", err)
	}
	if err := msg.To(m.cfg.recipient()); err != nil {
		return fmt.Errorf("setting recipient: %w", err)
	}
	if s.Email != "" {
		// an unusable reply address should not lose the suggestion
		_ = msg.ReplyTo(s.Email)
	}

	msg.Subject(suggestionSubject)
	msg.SetBodyString(mail.TypeTextPlain, s.body())

	opts := []mail.Option{mail.WithPort(m.cfg.smtpPort)}
	if m.cfg.smtpUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.smtpUser),
			mail.WithPassword(m.cfg.smtpPass),
		)
	}

	client, err := mail.NewClient(m.cfg.smtpHost, opts...)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending suggestion: %w", err)
	}

	return nil
}

func serveSuggestion(mailer Mailer, log *zap.SugaredLogger, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		respond := func(status int, v any) {
			if err := writeJSON(w, status, v); err != nil {
				errs <- err
			}
		}

		var s Suggestion

		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSuggestionSize)).Decode(&s)
		if err != nil || strings.TrimSpace(s.Text) == "" {
			respond(http.StatusBadRequest, errorResponse{Error: "Suggestion is required."})
			return
		}

		if mailer == nil {
			log.Debugf("SERVE: Dropped suggestion from %s: %v", realIP(r), errMailDisabled)
			respond(http.StatusServiceUnavailable, errorResponse{Error: "Suggestions are not enabled."})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), mailTimeout)
		defer cancel()

		if err := mailer.Send(ctx, s); err != nil {
			log.Errorf("SERVE: Failed to relay suggestion from %s: %v", realIP(r), err)
			respond(http.StatusInternalServerError, errorResponse{Error: "Failed to send suggestion."})
			return
		}

		respond(http.StatusOK, map[string]bool{"success": true})

		log.Infof("SERVE: Suggestion from %s relayed in %s",
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}
