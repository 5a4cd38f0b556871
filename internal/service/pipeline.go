package service

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hallmail/hallmail/internal/api/dto"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/httpclient"
)

// PipelineNotifier tells the classification pipeline about mailboxes it
// should start processing
type PipelineNotifier interface {
	NotifyActivation(ctx context.Context, activation dto.PipelineActivation) error
}

type pipelineNotifier struct {
	ServiceParams
}

func NewPipelineNotifier(params ServiceParams) PipelineNotifier {
	return &pipelineNotifier{ServiceParams: params}
}

func (s *pipelineNotifier) NotifyActivation(ctx context.Context, activation dto.PipelineActivation) error {
	url := s.Config.Pipeline.ActivationWebhookURL
	if url == "" {
		s.Logger.Debugw("pipeline activation webhook not configured, skipping",
			"email_configuration_id", activation.EmailConfigurationID)
		return nil
	}

	body, err := json.Marshal(activation)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode pipeline activation").
			Mark(ierr.ErrInternal)
	}

	resp, err := s.Client.Send(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    url,
		Body:   body,
	})
	if err != nil {
		return err
	}

	s.Logger.Infow("notified pipeline of mailbox activation",
		"email_configuration_id", activation.EmailConfigurationID,
		"status", resp.StatusCode,
	)
	return nil
}
