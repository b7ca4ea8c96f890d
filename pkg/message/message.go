package message

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/gmail/v1"
)

// ErrDecodeFailure is returned when a body part is not valid base64url.
var ErrDecodeFailure = errors.New("decode failure")

// Email is the decoded view of a Gmail message. TextPlain and HTML are nil
// when the message has no part of that type.
type Email struct {
	ID        string
	ThreadID  string
	Snippet   string
	TextPlain *string
	HTML      *string
	Subject   string
	From      string
	To        string
	Date      string
}

// Text returns the plain text body, or the snippet when there is none.
func (e *Email) Text() string {
	if e.TextPlain != nil && *e.TextPlain != "" {
		return *e.TextPlain
	}
	return e.Snippet
}

// Decode extracts bodies and the headers the onboarding parser cares about.
func Decode(msg *gmail.Message) (*Email, error) {
	if msg == nil || msg.Payload == nil {
		return nil, fmt.Errorf("%w: message has no payload", ErrDecodeFailure)
	}

	email := &Email{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
		Subject:  Header(msg.Payload.Headers, "Subject"),
		From:     Header(msg.Payload.Headers, "From"),
		To:       Header(msg.Payload.Headers, "To"),
		Date:     Header(msg.Payload.Headers, "Date"),
	}

	if len(msg.Payload.Parts) > 0 {
		text, err := findPart(msg.Payload.Parts, "text/plain")
		if err != nil {
			return nil, err
		}
		html, err := findPart(msg.Payload.Parts, "text/html")
		if err != nil {
			return nil, err
		}
		email.TextPlain = text
		email.HTML = html
		return email, nil
	}

	// Single-part message
	if msg.Payload.Body != nil && msg.Payload.Body.Data != "" {
		text, err := DecodeBody(msg.Payload.Body.Data)
		if err != nil {
			return nil, err
		}
		email.TextPlain = &text
	}

	return email, nil
}

// findPart walks the part tree depth-first and decodes the first part of the
// given MIME type that carries inline data.
func findPart(parts []*gmail.MessagePart, mimeType string) (*string, error) {
	for _, part := range parts {
		if part == nil {
			continue
		}
		if part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
			text, err := DecodeBody(part.Body.Data)
			if err != nil {
				return nil, err
			}
			return &text, nil
		}
		if len(part.Parts) > 0 {
			text, err := findPart(part.Parts, mimeType)
			if err != nil {
				return nil, err
			}
			if text != nil {
				return text, nil
			}
		}
	}
	return nil, nil
}

// DecodeBody decodes base64url body data. Padding is optional.
func DecodeBody(data string) (string, error) {
	std := strings.NewReplacer("-", "+", "_", "/").Replace(data)
	std = strings.TrimRight(std, "=")
	decoded, err := base64.RawStdEncoding.DecodeString(std)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	return string(decoded), nil
}

// EncodeBody is the inverse of DecodeBody, producing Gmail-style base64url.
func EncodeBody(text string) string {
	return base64.URLEncoding.EncodeToString([]byte(text))
}

// Header returns the value of the named header, matched case-insensitively,
// or "" when absent.
func Header(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if header != nil && strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}
