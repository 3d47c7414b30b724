package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thde.io/nationbuilder"
)

func personContent(p nationbuilder.Person) *nationbuilder.WebhookContent[nationbuilder.PersonWebhookPayload] {
	return &nationbuilder.WebhookContent[nationbuilder.PersonWebhookPayload]{
		NationSlug: "demo",
		Payload:    nationbuilder.PersonWebhookPayload{Person: p},
		Token:      "secret",
		Version:    4,
	}
}

func TestPersonDelivery(t *testing.T) {
	f, err := compileFilter(`hasTag("volunteer")`)
	require.NoError(t, err)

	var buf bytes.Buffer
	a := &app{out: &buf, logger: zerolog.Nop()}
	deliver := a.personDelivery(f)

	volunteer := nationbuilder.Person{AbbreviatedPerson: nationbuilder.AbbreviatedPerson{
		ID:        7,
		FirstName: "Ada",
		Tags:      []string{"Volunteer"},
	}}
	donor := nationbuilder.Person{AbbreviatedPerson: nationbuilder.AbbreviatedPerson{
		ID:   8,
		Tags: []string{"donor"},
	}}

	require.NoError(t, deliver(nil, personContent(donor)))
	assert.Empty(t, buf.String())

	require.NoError(t, deliver(nil, personContent(volunteer)))

	var got nationbuilder.Person
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, nationbuilder.ID(7), got.ID)
	assert.Equal(t, "Ada", got.FirstName)
}

func TestPersonDelivery_MissingField(t *testing.T) {
	f, err := compileFilter(`support_level > 2`)
	require.NoError(t, err)

	var buf bytes.Buffer
	a := &app{out: &buf, logger: zerolog.Nop()}

	// support_level is missing.
	require.NoError(t, a.personDelivery(f)(nil, personContent(nationbuilder.Person{})))
	assert.Empty(t, buf.String())
}

func TestWebhookMux(t *testing.T) {
	var buf bytes.Buffer
	a := &app{out: &buf, logger: zerolog.Nop()}
	mux := a.webhookMux("/webhook", "secret", nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"delivery", http.MethodPost, "/webhook", `{"nation_slug":"demo","token":"secret","version":4,"payload":{"person":{"id":5}}}`, http.StatusOK},
		{"wrong token", http.MethodPost, "/webhook", `{"nation_slug":"demo","token":"nope","payload":{"person":{"id":6}}}`, http.StatusUnauthorized},
		{"invalid body", http.MethodPost, "/webhook", `{`, http.StatusBadRequest},
		{"get", http.MethodGet, "/webhook", ``, http.StatusMethodNotAllowed},
		{"other path", http.MethodPost, "/other", `{}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	var got nationbuilder.Person
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, nationbuilder.ID(5), got.ID)
}

func TestServe_Cancelled(t *testing.T) {
	a := &app{logger: zerolog.Nop()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.serve(ctx, &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()})
	assert.NoError(t, err)
}

func TestServe_ListenError(t *testing.T) {
	a := &app{logger: zerolog.Nop()}

	err := a.serve(context.Background(), &http.Server{Addr: "127.0.0.1:-1"})
	assert.Error(t, err)
}
