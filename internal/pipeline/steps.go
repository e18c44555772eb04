package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"text/template"

	"showrunner/internal/codename"
	"showrunner/internal/faults"
	"showrunner/internal/generate"
	"showrunner/internal/models"
	"showrunner/internal/schedule"
)

// Step is one idempotent unit of production work. Run returns the record
// fields it changed; it also applies the same changes to ep so later steps
// in the stage see them. A nil map means the step was a no-op.
type Step interface {
	Name() string
	Run(ctx context.Context, ep *models.Episode, force bool) (map[string]interface{}, error)
}

// kickoffStep prepares a NotStarted episode for production: permanent
// codename, release slot, and the script document rendered from the prompt
// input.
type kickoffStep struct {
	svc generate.Service
	now clock
}

func (s *kickoffStep) Name() string { return "kickoff" }

func (s *kickoffStep) Run(ctx context.Context, ep *models.Episode, force bool) (map[string]interface{}, error) {
	fields := map[string]interface{}{}

	// The codename is assigned exactly once. Even a forced re-run keeps
	// the existing one; it is the feed's permanent identifier.
	if ep.Codename == nil || *ep.Codename == "" {
		name := codename.Generate(ep.Season, ep.Episode)
		ep.Codename = &name
		fields["codename"] = name
	}

	if ep.ReleaseAt == nil {
		slot := schedule.NextSlot(s.now())
		ep.ReleaseAt = &slot
		fields["release_at"] = slot
	}

	if (ep.ScriptURL == nil || force) && ep.PromptInput != nil && *ep.PromptInput != "" {
		title := fmt.Sprintf("%s - Script", *ep.Codename)
		var url string
		err := retryTransient(ctx, fmt.Sprintf("script document s%02de%03d", ep.Season, ep.Episode), func() error {
			var err error
			url, err = s.svc.CreateDocument(ctx, title, *ep.PromptInput)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create script document: %w", err)
		}
		ep.ScriptURL = &url
		fields["script_url"] = url
	}

	return fields, nil
}

type transcriptionStep struct {
	svc generate.Service
}

func (s *transcriptionStep) Name() string { return "transcription" }

func (s *transcriptionStep) Run(ctx context.Context, ep *models.Episode, force bool) (map[string]interface{}, error) {
	if ep.Transcribed && ep.TranscriptURL != nil && !force {
		return nil, nil
	}

	if ep.SourceMediaURL == nil || *ep.SourceMediaURL == "" {
		return nil, faults.Permanent(errors.New("source media is missing"))
	}

	var url string
	err := retryTransient(ctx, fmt.Sprintf("transcription s%02de%03d", ep.Season, ep.Episode), func() error {
		var err error
		url, err = s.svc.Transcribe(ctx, *ep.SourceMediaURL)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	ep.Transcribed = true
	ep.TranscriptURL = &url
	return map[string]interface{}{
		"transcribed":    true,
		"transcript_url": url,
	}, nil
}

var showNotesTemplate = template.Must(template.New("shownotes").Parse(
	`# {{.Title}}

Codename: {{.Codename}}
{{if .Description}}
{{.Description}}
{{end}}{{if .Keywords}}Topics: {{.Keywords}}
{{end}}{{if .TranscriptURL}}Full transcript: {{.TranscriptURL}}
{{end}}`))

type showNotesStep struct {
	svc generate.Service
}

func (s *showNotesStep) Name() string { return "show-notes" }

func (s *showNotesStep) Run(ctx context.Context, ep *models.Episode, force bool) (map[string]interface{}, error) {
	if ep.ShowNotesURL != nil && !force {
		return nil, nil
	}

	if !ep.Transcribed {
		return nil, faults.Permanent(errors.New("show notes require a transcript"))
	}

	var buf bytes.Buffer
	err := showNotesTemplate.Execute(&buf, map[string]string{
		"Title":         ep.Title,
		"Codename":      deref(ep.Codename),
		"Description":   deref(ep.Description),
		"Keywords":      deref(ep.Keywords),
		"TranscriptURL": deref(ep.TranscriptURL),
	})
	if err != nil {
		return nil, faults.Permanent(fmt.Errorf("failed to render show notes template: %w", err))
	}

	// Generative enhancement is optional polish; the template output is
	// always an acceptable fallback.
	body := buf.String()
	if enhanced, err := s.svc.Enhance(ctx, body); err == nil && enhanced != "" {
		body = enhanced
	} else if err != nil {
		log.Printf("show notes enhancement failed for s%02de%03d, using template output: %v", ep.Season, ep.Episode, err)
	}

	title := fmt.Sprintf("%s - Show Notes", deref(ep.Codename))
	var url string
	err = retryTransient(ctx, fmt.Sprintf("show notes s%02de%03d", ep.Season, ep.Episode), func() error {
		var err error
		url, err = s.svc.CreateDocument(ctx, title, body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create show notes document: %w", err)
	}

	ep.ShowNotesURL = &url
	return map[string]interface{}{"show_notes_url": url}, nil
}

type recapStep struct {
	svc generate.Service
}

func (s *recapStep) Name() string { return "recap" }

func (s *recapStep) Run(ctx context.Context, ep *models.Episode, force bool) (map[string]interface{}, error) {
	if ep.RecapGenerated && ep.RecapURL != nil && !force {
		return nil, nil
	}

	if ep.TranscriptURL == nil || *ep.TranscriptURL == "" {
		return nil, faults.Permanent(errors.New("recap requires a transcript"))
	}

	var url string
	err := retryTransient(ctx, fmt.Sprintf("recap s%02de%03d", ep.Season, ep.Episode), func() error {
		var err error
		url, err = s.svc.Summarize(ctx, *ep.TranscriptURL)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("recap generation failed: %w", err)
	}

	ep.RecapURL = &url
	ep.RecapGenerated = true
	ep.Archived = true
	return map[string]interface{}{
		"recap_url":       url,
		"recap_generated": true,
		"archived":        true,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
