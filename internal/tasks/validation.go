package tasks

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/taskhub/taskhub/internal/shared"
)

// Input is the body of task create and update requests. Every field is
// optional at decode time; required-ness is enforced by the field validator.
type Input struct {
	Title       shared.Optional[string]   `json:"title"`
	Description shared.Optional[string]   `json:"description"`
	Status      shared.Optional[string]   `json:"status"`
	Priority    shared.Optional[string]   `json:"priority"`
	DueDate     shared.Optional[string]   `json:"dueDate"`
	Tags        shared.Optional[[]string] `json:"tags"`
}

type fieldRule struct {
	tag     string
	message string
}

// fieldRules drives both create and update validation.
var fieldRules = map[string][]fieldRule{
	"title": {
		{tag: "required", message: "Title is required"},
		{tag: "max=100", message: "Title cannot be more than 100 characters"},
	},
	"description": {
		{tag: "max=500", message: "Description cannot be more than 500 characters"},
	},
	"status": {
		{tag: "taskstatus", message: "Status must be pending, in-progress, or completed"},
	},
	"priority": {
		{tag: "taskpriority", message: "Priority must be low, medium, or high"},
	},
	"dueDate": {
		{tag: "future", message: "Due date must be in the future"},
	},
}

var dueDateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

// fieldValidator checks task fields by name.
type fieldValidator struct {
	v *shared.Validator
}

func newFieldValidator(now func() time.Time) *fieldValidator {
	v := shared.NewValidator()
	_ = v.RegisterValidation("taskstatus", func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("taskpriority", func(fl validator.FieldLevel) bool {
		return Priority(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("future", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.Struct {
			return false
		}
		t, ok := fl.Field().Interface().(time.Time)
		return ok && t.After(now())
	})
	return &fieldValidator{v: v}
}

func (f *fieldValidator) check(errs *shared.ValidationError, field string, value any) {
	for _, rule := range fieldRules[field] {
		f.v.Var(errs, field, value, rule.tag, rule.message)
	}
}

func invalid(errs *shared.ValidationError, field string) {
	if errs.Has(field) {
		return
	}
	msg := "Invalid value"
	if rules := fieldRules[field]; len(rules) > 0 {
		msg = rules[0].message
	}
	errs.Add(field, msg)
}

// Validate turns raw input into a Patch. When creating, title is required and
// absent fields fall back to defaults. All failing fields are collected.
func (f *fieldValidator) Validate(in Input, creating bool) (Patch, error) {
	var patch Patch
	errs := &shared.ValidationError{}

	switch {
	case in.Title.Present():
		title := strings.TrimSpace(in.Title.Value)
		f.check(errs, "title", title)
		patch.Title = &title
	case in.Title.Set || creating:
		invalid(errs, "title")
	}

	switch {
	case in.Description.Present():
		desc := strings.TrimSpace(in.Description.Value)
		f.check(errs, "description", desc)
		patch.Description = &desc
	case in.Description.Null:
		empty := ""
		patch.Description = &empty
	case in.Description.Invalid:
		errs.Add("description", "Description must be a string")
	}

	switch {
	case in.Status.Present():
		status := Status(strings.TrimSpace(in.Status.Value))
		f.check(errs, "status", string(status))
		patch.Status = &status
	case in.Status.Set:
		invalid(errs, "status")
	}

	switch {
	case in.Priority.Present():
		priority := Priority(strings.TrimSpace(in.Priority.Value))
		f.check(errs, "priority", string(priority))
		patch.Priority = &priority
	case in.Priority.Set:
		invalid(errs, "priority")
	}

	switch {
	case in.DueDate.Present():
		due, ok := parseDueDate(in.DueDate.Value)
		if !ok {
			errs.Add("dueDate", "Due date must be a valid date")
			break
		}
		f.check(errs, "dueDate", due)
		patch.DueDate = &due
	case in.DueDate.Null:
		patch.ClearDueDate = true
	case in.DueDate.Invalid:
		errs.Add("dueDate", "Due date must be a valid date")
	}

	switch {
	case in.Tags.Present():
		patch.Tags = normalizeTags(in.Tags.Value)
		patch.SetTags = true
	case in.Tags.Null:
		patch.Tags = []string{}
		patch.SetTags = true
	case in.Tags.Invalid:
		errs.Add("tags", "Tags must be an array of strings")
	}

	if err := errs.Err(); err != nil {
		return Patch{}, err
	}
	return patch, nil
}

func parseDueDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// normalizeTags trims each tag and keeps the submitted order and count.
func normalizeTags(tags []string) []string {
	out := make([]string, len(tags))
	for i, tag := range tags {
		out[i] = strings.TrimSpace(tag)
	}
	return out
}
