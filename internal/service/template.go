package service

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
	"github.com/valyala/fasttemplate"
)

// Placeholders accepted in message templates.
var allowedPlaceholders = map[string]bool{
	"event":              true,
	"event_slug":         true,
	"code":               true,
	"email":              true,
	"secret":             true,
	"url":                true,
	"scheduled_datetime": true,
}

// Render substitutes {name} placeholders from vars. Unknown placeholders are kept verbatim.
func Render(tmpl string, vars map[string]string) string {
	out, err := fasttemplate.ExecuteFuncStringWithErr(tmpl, "{", "}", func(w io.Writer, tag string) (int, error) {
		if v, ok := vars[tag]; ok {
			return w.Write([]byte(v))
		}
		return w.Write([]byte("{" + tag + "}"))
	})
	if err != nil {
		return tmpl
	}
	return out
}

// ValidatePlaceholders rejects templates that use placeholders outside the allowed set.
func ValidatePlaceholders(field, tmpl string) error {
	var unknown []string
	_, err := fasttemplate.ExecuteFuncStringWithErr(tmpl, "{", "}", func(w io.Writer, tag string) (int, error) {
		if !allowedPlaceholders[tag] {
			unknown = append(unknown, "{"+tag+"}")
		}
		return 0, nil
	})
	if err != nil {
		return invalid(field, err.Error())
	}
	if len(unknown) > 0 {
		allowed := make([]string, 0, len(allowedPlaceholders))
		for k := range allowedPlaceholders {
			allowed = append(allowed, "{"+k+"}")
		}
		sort.Strings(allowed)
		return invalid(field, fmt.Sprintf("invalid placeholders %s, allowed are %s",
			strings.Join(unknown, ", "), strings.Join(allowed, ", ")))
	}
	return nil
}

func messageVars(event *models.Event, order *models.Order, publicURL string) map[string]string {
	return map[string]string{
		"event":      event.Name,
		"event_slug": event.Slug,
		"code":       order.Code,
		"email":      order.Email,
		"secret":     order.Secret,
		"url":        fmt.Sprintf("%s/%s/order/%s/%s/", publicURL, event.Slug, order.Code, order.Secret),
	}
}
