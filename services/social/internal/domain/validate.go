package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxCommentLength     = 500
	MaxDisplayNameLength = 50
	MaxBioLength         = 160
	MaxPromptLength      = 1000
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

// NormalizeComment trims content and enforces 1..MaxCommentLength characters.
func NormalizeComment(content string) (string, error) {
	c := strings.TrimSpace(content)
	if c == "" {
		return "", Invalid("content", "comment cannot be empty")
	}
	if utf8.RuneCountInString(c) > MaxCommentLength {
		return "", Invalid("content", "comment is too long (max 500 characters)")
	}
	return c, nil
}

// NormalizeUsername trims and checks the username format.
func NormalizeUsername(username string) (string, error) {
	u := strings.TrimSpace(username)
	if !usernamePattern.MatchString(u) {
		return "", Invalid("username", "username must be 3-20 characters and contain only letters, numbers, and underscores")
	}
	return u, nil
}

// NormalizeProfileText trims an optional free-text profile field and bounds its length.
func NormalizeProfileText(field, value string, max int) (string, error) {
	v := strings.TrimSpace(value)
	if utf8.RuneCountInString(v) > max {
		return "", Invalid(field, field+" is too long")
	}
	return v, nil
}

// NormalizePrompt trims a generation prompt, which is required.
func NormalizePrompt(prompt string) (string, error) {
	p := strings.TrimSpace(prompt)
	if p == "" {
		return "", Invalid("prompt", "prompt is required")
	}
	if utf8.RuneCountInString(p) > MaxPromptLength {
		return "", Invalid("prompt", "prompt is too long")
	}
	return p, nil
}

// Dimensions maps an aspect ratio to the generated image size; unknown ratios are square.
func Dimensions(aspectRatio string) (width, height int) {
	switch strings.TrimSpace(aspectRatio) {
	case "16:9":
		return 768, 432
	case "9:16":
		return 432, 768
	default:
		return 512, 512
	}
}
