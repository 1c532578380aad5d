// Package detector drives a browser session to extract the structural
// schema of a web form.
package detector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/form-autopilot/internal/browser"
	"github.com/form-autopilot/internal/classifier"
	"github.com/form-autopilot/internal/config"
	apperrors "github.com/form-autopilot/internal/errors"
	"github.com/form-autopilot/internal/logging"
	"github.com/form-autopilot/internal/models"
	"github.com/form-autopilot/internal/profiling"
	"github.com/form-autopilot/internal/types"
)

// Detector detects form schemas on live pages
type Detector struct {
	driver          browser.Driver
	cfg             config.BrowserConfig
	enableProfiling bool
}

// New creates a form detector
func New(driver browser.Driver, cfg config.BrowserConfig, enableProfiling bool) *Detector {
	return &Detector{
		driver:          driver,
		cfg:             cfg,
		enableProfiling: enableProfiling,
	}
}

// rawField is the per-element result of the field enumeration script
type rawField struct {
	TagName     string `json:"tagName"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Placeholder string `json:"placeholder"`
	Required    bool   `json:"required"`
	Label       string `json:"label"`
}

// captchaMarkers is the result of the CAPTCHA probe script
type captchaMarkers struct {
	HasRecaptchaV2 bool `json:"hasRecaptchaV2"`
	HasHcaptcha    bool `json:"hasHcaptcha"`
	HasCloudflare  bool `json:"hasCloudflare"`
	HasRecaptchaV3 bool `json:"hasRecaptchaV3"`
}

// Detect opens a fresh browser session, navigates to url and extracts the
// form schema. Detection is all-or-nothing: any failure returns a single
// DetectionFailed error and no partial schema. The returned profiling data
// is nil when profiling is disabled.
func (d *Detector) Detect(ctx context.Context, url string) (*models.FormSchema, *profiling.Data, error) {
	collector := profiling.Enabled("form_detection", d.enableProfiling)

	logging.FromContext(ctx).Info("detecting form", zap.String("url", url))

	schema, err := d.detect(ctx, url, collector)
	if err != nil {
		logging.FromContext(ctx).Error("form detection failed",
			zap.String("url", url), zap.Error(err))
		return nil, nil, apperrors.NewDetectionFailedError(url, err)
	}

	logging.FromContext(ctx).Info("form detected",
		zap.String("url", url),
		zap.Int("fields", len(schema.Fields)),
		zap.String("captcha", string(schema.CaptchaType)))

	return schema, collector.Finish(), nil
}

func (d *Detector) detect(ctx context.Context, url string, collector profiling.Collector) (*models.FormSchema, error) {
	var sess browser.Session

	err := collector.Phase(ctx, "browser_launch", nil, func(ctx context.Context) error {
		var err error
		sess, err = d.driver.NewSession(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	// The session is released on every exit path, including cancellation.
	defer func() {
		_ = collector.Phase(context.Background(), "browser_cleanup", nil, func(context.Context) error {
			return sess.Close()
		})
	}()

	err = collector.Phase(ctx, "page_navigation", map[string]interface{}{"url": url}, func(ctx context.Context) error {
		return sess.Navigate(ctx, url, d.cfg.NavigationTimeout)
	})
	if err != nil {
		return nil, err
	}

	err = collector.Phase(ctx, "page_stabilization", nil, func(ctx context.Context) error {
		return browser.Settle(ctx, d.cfg.SettleDelay)
	})
	if err != nil {
		return nil, err
	}

	var (
		fields         []models.FormField
		captcha        types.CaptchaType
		submitSelector string
		isMultistep    bool
	)

	// The four extraction queries read the same static DOM snapshot and
	// carry no data dependency on each other, so they run concurrently.
	err = collector.Phase(ctx, "parallel_detection", nil, func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			var err error
			fields, err = d.extractFields(gctx, sess)
			return err
		})
		g.Go(func() error {
			var err error
			captcha, err = d.detectCaptcha(gctx, sess)
			return err
		})
		g.Go(func() error {
			var err error
			submitSelector, err = d.findSubmitButton(gctx, sess)
			return err
		})
		g.Go(func() error {
			var err error
			isMultistep, err = d.isMultistep(gctx, sess)
			return err
		})

		return g.Wait()
	})
	if err != nil {
		return nil, err
	}
	collector.AddCount(profiling.CountFields, len(fields))

	if submitSelector == "" {
		submitSelector = models.DefaultSubmitSelector
	}

	now := time.Now().UTC()
	return &models.FormSchema{
		URL:            url,
		DetectedAt:     now,
		LastVerified:   now,
		Fields:         fields,
		CaptchaType:    captcha,
		SubmitSelector: submitSelector,
		IsMultistep:    isMultistep,
	}, nil
}

// extractFields enumerates visible named inputs and classifies each one.
// Nameless, hidden and disabled elements never appear in the result; they
// cannot be targeted reliably by selector.
func (d *Detector) extractFields(ctx context.Context, sess browser.Session) ([]models.FormField, error) {
	var raw []rawField
	if err := sess.Evaluate(ctx, fieldsScript, &raw); err != nil {
		return nil, fmt.Errorf("field enumeration failed: %w", err)
	}

	fields := make([]models.FormField, 0, len(raw))
	for _, rf := range raw {
		fieldType := classifier.Classify(rf.Name, rf.Type, rf.Placeholder, rf.Label)
		fields = append(fields, models.FormField{
			Selector:               fmt.Sprintf("%s[name='%s']", rf.TagName, rf.Name),
			Name:                   rf.Name,
			HTMLType:               rf.Type,
			FieldType:              fieldType,
			Required:               rf.Required,
			Placeholder:            rf.Placeholder,
			LabelText:              rf.Label,
			InferredCandidateField: classifier.InferCandidateField(fieldType),
		})
	}

	return fields, nil
}

// detectCaptcha probes for CAPTCHA markers. Precedence: reCAPTCHA v2 >
// hCaptcha > Cloudflare Turnstile > reCAPTCHA v3 script signature.
func (d *Detector) detectCaptcha(ctx context.Context, sess browser.Session) (types.CaptchaType, error) {
	var markers captchaMarkers
	if err := sess.Evaluate(ctx, captchaScript, &markers); err != nil {
		return "", fmt.Errorf("captcha detection failed: %w", err)
	}

	switch {
	case markers.HasRecaptchaV2:
		return types.CaptchaRecaptchaV2, nil
	case markers.HasHcaptcha:
		return types.CaptchaHcaptcha, nil
	case markers.HasCloudflare:
		return types.CaptchaCloudflare, nil
	case markers.HasRecaptchaV3:
		return types.CaptchaRecaptchaV3, nil
	default:
		return types.CaptchaNone, nil
	}
}

// findSubmitButton returns the first matching submit locator, or empty when
// nothing was found (the caller substitutes the default guess).
func (d *Detector) findSubmitButton(ctx context.Context, sess browser.Session) (string, error) {
	var selector string
	if err := sess.Evaluate(ctx, submitScript, &selector); err != nil {
		return "", fmt.Errorf("submit button detection failed: %w", err)
	}
	return selector, nil
}

func (d *Detector) isMultistep(ctx context.Context, sess browser.Session) (bool, error) {
	var multistep bool
	if err := sess.Evaluate(ctx, multistepScript, &multistep); err != nil {
		return false, fmt.Errorf("multi-step detection failed: %w", err)
	}
	return multistep, nil
}
