package param

import (
	"fmt"
	"strings"
	"unicode"
)

// Tag names used by the textual parameter syntax.
const (
	TagParam = "param"
	TagJob   = "job"
)

// ParseTag decides the variant for a tagged scalar, e.g. tag "param" with
// body "foo bar", or tag "job" with body "jobOne.a.b".
func ParseTag(tag, body string) (Value, error) {
	switch strings.TrimPrefix(tag, "!") {
	case TagParam:
		return ParseInputTag(body)
	case TagJob:
		return ParseJobTag(body)
	default:
		return nil, fmt.Errorf("unhandled tag %q with value %q", tag, body)
	}
}

// ParseInputTag parses "<name> [default]". Everything after the first run of
// whitespace is the default, kept as a string literal.
func ParseInputTag(body string) (InputRef, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return InputRef{}, fmt.Errorf("param tag requires an input name")
	}

	i := strings.IndexFunc(body, unicode.IsSpace)
	if i < 0 {
		return InputRef{Name: body}, nil
	}
	return InputRef{
		Name:       body[:i],
		Default:    strings.TrimSpace(body[i:]),
		HasDefault: true,
	}, nil
}

// ParseJobTag parses "<job_id>[.<field>.<field>...]".
func ParseJobTag(body string) (JobRef, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return JobRef{}, fmt.Errorf("job tag requires a job id")
	}

	segments := strings.Split(body, ".")
	for _, s := range segments {
		if s == "" {
			return JobRef{}, fmt.Errorf("job reference %q contains an empty segment", body)
		}
	}
	ref := JobRef{JobID: segments[0]}
	if len(segments) > 1 {
		ref.Path = segments[1:]
	}
	return ref, nil
}
