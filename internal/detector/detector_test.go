package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/form-autopilot/internal/browser"
	"github.com/form-autopilot/internal/config"
	apperrors "github.com/form-autopilot/internal/errors"
	"github.com/form-autopilot/internal/models"
	"github.com/form-autopilot/internal/types"
)

// fakeSession answers each extraction script with canned JSON
type fakeSession struct {
	mu          sync.Mutex
	scripts     map[string]string
	navigateErr error
	evaluateErr error
	closed      int
}

func (s *fakeSession) Navigate(_ context.Context, _ string, _ time.Duration) error {
	return s.navigateErr
}

func (s *fakeSession) WaitReady(context.Context, time.Duration) error { return nil }

func (s *fakeSession) Evaluate(_ context.Context, expression string, out interface{}) error {
	if s.evaluateErr != nil {
		return s.evaluateErr
	}
	s.mu.Lock()
	resp, ok := s.scripts[expression]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unexpected script")
	}
	return json.Unmarshal([]byte(resp), out)
}

func (s *fakeSession) Click(context.Context, string) error                { return nil }
func (s *fakeSession) Fill(context.Context, string, string) error         { return nil }
func (s *fakeSession) Check(context.Context, string) error                { return nil }
func (s *fakeSession) SelectOption(context.Context, string, string) error { return nil }
func (s *fakeSession) SelectOptionByText(context.Context, string, string) error {
	return nil
}
func (s *fakeSession) SetFiles(context.Context, string, []string) error { return nil }
func (s *fakeSession) Count(context.Context, string) (int, error)       { return 0, nil }
func (s *fakeSession) Screenshot(context.Context, string) error         { return nil }

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

type fakeDriver struct {
	session *fakeSession
	err     error
}

func (d *fakeDriver) NewSession(context.Context) (browser.Session, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		scripts: map[string]string{
			fieldsScript:    `[]`,
			captchaScript:   `{"hasRecaptchaV2":false,"hasHcaptcha":false,"hasCloudflare":false,"hasRecaptchaV3":false}`,
			submitScript:    `""`,
			multistepScript: `false`,
		},
	}
}

func testConfig() config.BrowserConfig {
	return config.BrowserConfig{
		NavigationTimeout: time.Second,
		SettleDelay:       0,
	}
}

func TestDetect_ClassifiesFields(t *testing.T) {
	sess := newFakeSession()
	sess.scripts[fieldsScript] = `[
		{"tagName":"input","type":"email","name":"bewerber_email","placeholder":"","required":true,"label":"E-Mail"},
		{"tagName":"input","type":"text","name":"vorname","placeholder":"","required":true,"label":"Vorname"},
		{"tagName":"textarea","type":"textarea","name":"nachricht","placeholder":"","required":false,"label":""}
	]`
	sess.scripts[submitScript] = `"button#apply"`

	d := New(&fakeDriver{session: sess}, testConfig(), false)
	schema, profData, err := d.Detect(context.Background(), "https://jobs.example.com/apply")
	require.NoError(t, err)
	assert.Nil(t, profData, "profiling disabled")

	require.Len(t, schema.Fields, 3)
	assert.Equal(t, types.FieldEmail, schema.Fields[0].FieldType)
	assert.Equal(t, "candidate.email", schema.Fields[0].InferredCandidateField)
	assert.Equal(t, "input[name='bewerber_email']", schema.Fields[0].Selector)
	assert.Equal(t, types.FieldFirstName, schema.Fields[1].FieldType)
	assert.Equal(t, types.FieldLongText, schema.Fields[2].FieldType)
	assert.Equal(t, models.UnknownCandidateField, schema.Fields[2].InferredCandidateField)

	assert.Equal(t, "button#apply", schema.SubmitSelector)
	assert.Equal(t, types.CaptchaNone, schema.CaptchaType)
	assert.False(t, schema.IsMultistep)
	assert.False(t, schema.DetectedAt.IsZero())
	assert.Equal(t, 1, sess.closed)
}

func TestDetect_SubmitSelectorFallback(t *testing.T) {
	sess := newFakeSession()

	d := New(&fakeDriver{session: sess}, testConfig(), false)
	schema, _, err := d.Detect(context.Background(), "https://jobs.example.com/apply")
	require.NoError(t, err)

	assert.Equal(t, models.DefaultSubmitSelector, schema.SubmitSelector)
}

func TestDetect_CaptchaPrecedence(t *testing.T) {
	tests := []struct {
		name    string
		markers string
		want    types.CaptchaType
	}{
		{
			"recaptcha v2 beats hcaptcha",
			`{"hasRecaptchaV2":true,"hasHcaptcha":true,"hasCloudflare":true,"hasRecaptchaV3":true}`,
			types.CaptchaRecaptchaV2,
		},
		{
			"hcaptcha beats cloudflare",
			`{"hasRecaptchaV2":false,"hasHcaptcha":true,"hasCloudflare":true,"hasRecaptchaV3":true}`,
			types.CaptchaHcaptcha,
		},
		{
			"cloudflare beats v3",
			`{"hasRecaptchaV2":false,"hasHcaptcha":false,"hasCloudflare":true,"hasRecaptchaV3":true}`,
			types.CaptchaCloudflare,
		},
		{
			"v3 alone",
			`{"hasRecaptchaV2":false,"hasHcaptcha":false,"hasCloudflare":false,"hasRecaptchaV3":true}`,
			types.CaptchaRecaptchaV3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := newFakeSession()
			sess.scripts[captchaScript] = tt.markers

			d := New(&fakeDriver{session: sess}, testConfig(), false)
			schema, _, err := d.Detect(context.Background(), "https://jobs.example.com/apply")
			require.NoError(t, err)
			assert.Equal(t, tt.want, schema.CaptchaType)
		})
	}
}

func TestDetect_NavigationFailureIsDetectionFailed(t *testing.T) {
	sess := newFakeSession()
	sess.navigateErr = fmt.Errorf("net::ERR_NAME_NOT_RESOLVED")

	d := New(&fakeDriver{session: sess}, testConfig(), false)
	schema, _, err := d.Detect(context.Background(), "https://down.example.com")
	require.Error(t, err)
	assert.Nil(t, schema, "no partial schema on failure")

	var catErr *apperrors.CategorizedError
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, "DETECTION_FAILED", catErr.Code)
	assert.Equal(t, 1, sess.closed, "session released on failure")
}

func TestDetect_ExtractionFailureClosesSession(t *testing.T) {
	sess := newFakeSession()
	sess.evaluateErr = fmt.Errorf("execution context destroyed")

	d := New(&fakeDriver{session: sess}, testConfig(), false)
	_, _, err := d.Detect(context.Background(), "https://jobs.example.com/apply")
	require.Error(t, err)
	assert.Equal(t, 1, sess.closed)
}

func TestDetect_ProfilingCollectsPhases(t *testing.T) {
	sess := newFakeSession()

	d := New(&fakeDriver{session: sess}, testConfig(), true)
	_, profData, err := d.Detect(context.Background(), "https://jobs.example.com/apply")
	require.NoError(t, err)
	require.NotNil(t, profData)

	assert.Equal(t, "form_detection", profData.Operation)

	names := make([]string, 0, len(profData.Phases))
	for _, p := range profData.Phases {
		names = append(names, p.Name)
	}
	assert.Contains(t, names, "browser_launch")
	assert.Contains(t, names, "page_navigation")
	assert.Contains(t, names, "parallel_detection")
}
