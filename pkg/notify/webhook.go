/*
Copyright the Velero contributors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package notify

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	defaultWebhookTimeout = 10 * time.Second
	eventIDHeader         = "X-Restore-Event-Id"
)

type webhookNotifier struct {
	url    string
	client *http.Client
	log    logrus.FieldLogger
}

// NewWebhookNotifier returns a Notifier that POSTs events as JSON to url.
func NewWebhookNotifier(url string, timeout time.Duration, log logrus.FieldLogger) Notifier {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &webhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

func (w *webhookNotifier) Notify(ctx context.Context, event *Event) error {
	body, err := event.encode()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "error creating webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(eventIDHeader, event.ID)

	resp, err := w.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "error sending webhook to %s", w.url)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("webhook %s returned %s", w.url, resp.Status)
	}

	w.log.WithFields(logrus.Fields{"event": event.ID, "type": event.Type}).Debug("Delivered webhook notification")
	return nil
}
