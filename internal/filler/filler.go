// Package filler maps candidate data onto a detected form schema, drives
// the browser to fill and submit it, and classifies the outcome.
package filler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/form-autopilot/internal/browser"
	"github.com/form-autopilot/internal/config"
	"github.com/form-autopilot/internal/logging"
	"github.com/form-autopilot/internal/models"
	"github.com/form-autopilot/internal/profiling"
	"github.com/form-autopilot/internal/types"
)

// Filler fills and submits forms with candidate data
type Filler struct {
	driver          browser.Driver
	cfg             config.BrowserConfig
	enableProfiling bool
}

// New creates a form filler
func New(driver browser.Driver, cfg config.BrowserConfig, enableProfiling bool) *Filler {
	return &Filler{
		driver:          driver,
		cfg:             cfg,
		enableProfiling: enableProfiling,
	}
}

// FillAndSubmit fills the form described by schema with candidate data and
// submits it. Failures are captured into the returned record, never thrown:
// one form's failure must not abort a batch. The browser session is released
// on every exit path.
func (f *Filler) FillAndSubmit(ctx context.Context, schema *models.FormSchema, candidate *models.Candidate) *models.ApplicationRecord {
	logger := logging.FromContext(ctx).With(
		zap.String("url", schema.URL),
		zap.String("candidate", candidate.ID),
	)
	logger.Info("filling form")

	record := &models.ApplicationRecord{
		CandidateID:  candidate.ID,
		FormSchemaID: schema.ID,
		URL:          schema.URL,
		Status:       types.StatusPending,
		MaxAttempts:  models.DefaultMaxAttempts,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	collector := profiling.Enabled("form_filling", f.enableProfiling)
	f.fill(ctx, schema, candidate, record, collector)
	record.Profiling = collector.Finish()
	record.UpdatedAt = time.Now().UTC()

	logger.Info("fill attempt finished", zap.String("status", string(record.Status)))
	return record
}

// fill runs the attempt step sequence, mutating record with the outcome.
// Each step is a potential early-return point.
func (f *Filler) fill(ctx context.Context, schema *models.FormSchema, candidate *models.Candidate, record *models.ApplicationRecord, collector profiling.Collector) {
	logger := logging.FromContext(ctx)

	sess, err := f.driver.NewSession(ctx)
	if err != nil {
		record.Status = types.StatusFailed
		record.ErrorType = types.ErrorNetwork
		record.LastError = fmt.Sprintf("browser launch failed: %v", err)
		return
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("browser session close failed", zap.Error(err))
		}
	}()

	defer func() {
		// Uncaught failures anywhere in the step sequence become the
		// unknown classification with the originating message retained.
		if r := recover(); r != nil {
			record.Status = types.StatusFailed
			record.ErrorType = types.ErrorUnknown
			record.LastError = fmt.Sprintf("%v", r)
		}
	}()

	// Step 1: navigate and settle.
	err = collector.Phase(ctx, "navigation", map[string]interface{}{"url": schema.URL}, func(ctx context.Context) error {
		if err := sess.Navigate(ctx, schema.URL, f.cfg.NavigationTimeout); err != nil {
			return err
		}
		return browser.Settle(ctx, f.cfg.SettleDelay)
	})
	if err != nil {
		record.Status = types.StatusFailed
		record.ErrorType = types.ErrorNetwork
		record.LastError = err.Error()
		return
	}

	// Step 2: CAPTCHA quarantine. CAPTCHA-bearing forms are never
	// auto-submitted.
	quarantined := false
	_ = collector.Phase(ctx, "captcha_check", nil, func(ctx context.Context) error {
		if schema.HasCaptcha() {
			quarantined = true
			logger.Warn("captcha detected, quarantining",
				zap.String("captchaType", string(schema.CaptchaType)))
			record.Status = types.StatusCaptchaQuarantine
			record.ErrorType = types.ErrorCaptcha
			record.RequiresManualAction = true
			record.ManualActionType = models.ManualActionCaptcha
			record.ScreenshotPath = f.screenshot(ctx, sess, collector, "")
		}
		return nil
	})
	if quarantined {
		return
	}

	// Step 3: map candidate attributes onto field selectors.
	var fieldData map[string]string
	err = collector.Phase(ctx, "field_mapping", nil, func(context.Context) error {
		var mapErr error
		fieldData, mapErr = MapCandidateToForm(candidate, schema)
		return mapErr
	})
	if err != nil {
		record.Status = types.StatusFailed
		record.ErrorType = types.ErrorValidation
		record.LastError = err.Error()
		return
	}

	// Step 4: fill every mapped field with a type-appropriate strategy.
	err = collector.Phase(ctx, "form_filling", map[string]interface{}{"fields": len(fieldData)}, func(ctx context.Context) error {
		return f.fillFields(ctx, sess, schema, fieldData, candidate)
	})
	if err != nil {
		record.Status = types.StatusFailed
		record.ErrorType = types.ErrorFieldNotFound
		record.LastError = err.Error()
		record.ScreenshotPath = f.screenshot(ctx, sess, collector, "")
		return
	}
	collector.AddCount(profiling.CountFields, len(fieldData))

	// Step 5: pre-submit screenshot, click submit, bounded quiescence wait.
	preSubmitShot := f.screenshot(ctx, sess, collector, "_pre_submit")

	err = collector.Phase(ctx, "submission", nil, func(ctx context.Context) error {
		if err := sess.Click(ctx, schema.SubmitSelector); err != nil {
			return fmt.Errorf("submit click failed: %w", err)
		}
		// Many forms do not navigate on submit; a quiescence timeout is
		// tolerated and we proceed after a short delay.
		if err := sess.WaitReady(ctx, f.cfg.SubmitWaitTimeout); err != nil {
			logger.Debug("no navigation after submit", zap.Error(err))
			return browser.Settle(ctx, f.cfg.PostSubmitDelay)
		}
		return nil
	})
	if err != nil {
		record.Status = types.StatusFailed
		record.ErrorType = types.ErrorSubmitFailed
		record.LastError = err.Error()
		record.ScreenshotPath = preSubmitShot
		return
	}

	// Step 6: post-submit delay, final screenshot, success evaluation.
	success := false
	_ = collector.Phase(ctx, "verification", nil, func(ctx context.Context) error {
		if err := browser.Settle(ctx, f.cfg.PostSubmitDelay); err != nil {
			return err
		}
		record.ScreenshotPath = f.screenshot(ctx, sess, collector, "_post_submit")
		success = f.checkSuccess(ctx, sess, schema)
		return nil
	})

	// Absent a configured success indicator, success is assumed. This is a
	// known source of false positives; "submitted" flags the unconfirmed case.
	if success {
		record.Status = types.StatusSuccess
	} else {
		record.Status = types.StatusSubmitted
	}

	now := time.Now().UTC()
	record.SubmittedAt = &now
	record.FormDataSubmitted = fieldData
}

// MapCandidateToForm resolves every schema field with a non-unknown inferred
// path against the candidate. A required field with no inference or no
// candidate value fails the whole mapping; optional unmapped fields are
// silently skipped.
func MapCandidateToForm(candidate *models.Candidate, schema *models.FormSchema) (map[string]string, error) {
	fieldData := make(map[string]string)

	for _, field := range schema.Fields {
		inferred := field.InferredCandidateField
		if inferred == "" || inferred == models.UnknownCandidateField {
			if field.Required {
				return nil, fmt.Errorf("required field not mapped: %s", field.Name)
			}
			continue
		}

		attr, ok := parseCandidatePath(inferred)
		if !ok {
			if field.Required {
				return nil, fmt.Errorf("required field %s has unrecognized mapping %s", field.Name, inferred)
			}
			continue
		}

		value, present := candidate.Attribute(attr)
		if !present {
			if field.Required {
				return nil, fmt.Errorf("required field %s has no candidate value for %s", field.Name, attr)
			}
			continue
		}

		fieldData[field.Selector] = value
	}

	if len(fieldData) == 0 {
		return nil, fmt.Errorf("could not map candidate data to any form field")
	}
	return fieldData, nil
}

// parseCandidatePath splits "candidate.<attr>" into its attribute name
func parseCandidatePath(path string) (string, bool) {
	const prefix = "candidate."
	if len(path) <= len(prefix) || path[:len(prefix)] != prefix {
		return "", false
	}
	return path[len(prefix):], true
}

// fillFields applies the type-appropriate fill strategy per schema field
func (f *Filler) fillFields(ctx context.Context, sess browser.Session, schema *models.FormSchema, fieldData map[string]string, candidate *models.Candidate) error {
	logger := logging.FromContext(ctx)

	for _, field := range schema.Fields {
		selector := field.Selector

		if field.HTMLType == "file" {
			// File inputs receive the CV path; skipped when the file does
			// not exist locally.
			if candidate.CVFile != "" {
				if _, err := os.Stat(candidate.CVFile); err == nil {
					if err := sess.SetFiles(ctx, selector, []string{candidate.CVFile}); err != nil {
						return fmt.Errorf("file upload failed for %s: %w", field.Name, err)
					}
					logger.Info("uploaded file", zap.String("path", candidate.CVFile))
				}
			}
			continue
		}

		value, ok := fieldData[selector]
		if !ok || value == "" {
			if field.Required {
				return fmt.Errorf("no value for required field: %s", field.Name)
			}
			continue
		}

		switch field.HTMLType {
		case "checkbox":
			if err := sess.Check(ctx, selector); err != nil {
				return fmt.Errorf("checkbox %s: %w", field.Name, err)
			}
		case "select":
			if err := sess.SelectOption(ctx, selector, value); err != nil {
				// Value selection failed; fall back to visible text.
				if err := sess.SelectOptionByText(ctx, selector, value); err != nil {
					return fmt.Errorf("dropdown %s: %w", field.Name, err)
				}
			}
		default:
			if err := sess.Fill(ctx, selector, value); err != nil {
				return fmt.Errorf("field %s: %w", field.Name, err)
			}
			logger.Debug("filled field", zap.String("name", field.Name))
		}
	}

	return nil
}

// checkSuccess evaluates the schema's success indicator on the resulting
// page. With no indicator configured, success is assumed.
func (f *Filler) checkSuccess(ctx context.Context, sess browser.Session, schema *models.FormSchema) bool {
	if schema.SuccessIndicator == "" {
		return true
	}

	count, err := sess.Count(ctx, schema.SuccessIndicator)
	if err != nil {
		return false
	}
	return count > 0
}

// screenshot captures the page for audit and diagnosis. A failed capture
// logs and returns an empty path; screenshots never fail the attempt.
func (f *Filler) screenshot(ctx context.Context, sess browser.Session, collector profiling.Collector, suffix string) string {
	filename := fmt.Sprintf("form_%s%s.png", time.Now().UTC().Format("20060102_150405"), suffix)
	path := filepath.Join(f.cfg.ScreenshotDir, filename)

	if err := sess.Screenshot(ctx, path); err != nil {
		logging.FromContext(ctx).Error("screenshot failed", zap.Error(err))
		return ""
	}
	collector.AddCount(profiling.CountScreenshots, 1)
	return path
}
