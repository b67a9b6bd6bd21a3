package common

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lmittmann/tint"

	"github.com/dtnitsch/review-scraper/pkg/dates"
)

const Usage = "Usage: review-scraper --company <company_name> --start <YYYY-MM-DD> --end <YYYY-MM-DD> --source <g2|capterra>"

// NewLogger builds the CLI logger. format is "text" (colored, the default)
// or "json"; quiet drops everything below error.
func NewLogger(w io.Writer, quiet bool, format string) *slog.Logger {
	level := slog.LevelInfo
	if quiet {
		level = slog.LevelError
	}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isTerminal(f)
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	}))
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// NewValidator returns a validator with the "reviewdate" tag registered.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("reviewdate", func(fl validator.FieldLevel) bool {
		_, err := dates.ParseDate(fl.Field().String())
		return err == nil
	})
	return v
}

// ValidationMessage flattens validator errors into one line.
func ValidationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("--%s is required", strings.ToLower(fe.Field())))
		case "reviewdate":
			parts = append(parts, fmt.Sprintf("--%s %q is not a valid date", strings.ToLower(fe.Field()), fe.Value()))
		case "oneof":
			parts = append(parts, fmt.Sprintf("--%s must be one of %s", strings.ToLower(fe.Field()), fe.Param()))
		default:
			parts = append(parts, fe.Error())
		}
	}
	return strings.Join(parts, "; ")
}
