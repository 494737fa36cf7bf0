package autherr

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// The backends answer failures in three shapes:
//
//  1. structured JSON: {"error":{"code":403,"status":"PERMISSION_DENIED","message":"..."}}
//  2. JSON whose status is folded into the message: {"error":{"code":400,"message":"INVALID_ARGUMENT: ..."}}
//  3. a plain-text or HTML banner with an embedded numeric code, e.g. "Error 401 (Unauthorized)!!"
//
// Each shape gets its own parser; FromResponse tries them in order and falls
// back to CodeUnknown when none apply.

type wireError struct {
	Error struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// subCodeRe matches a leading SCREAMING_SNAKE status folded into a message,
// e.g. "FAILED_PRECONDITION: token expired".
var subCodeRe = regexp.MustCompile(`^([A-Z][A-Z0-9_]+)\s*:\s*(.*)$`)

// bannerCodeRe pulls the first three-digit code out of a text banner.
var bannerCodeRe = regexp.MustCompile(`\b([1-5]\d{2})\b`)

// FromResponse normalizes a non-2xx backend response body.
func FromResponse(status int, body []byte) *Error {
	if e := parseStructuredJSON(status, body); e != nil {
		return e
	}
	if e := parseTextBanner(status, body); e != nil {
		return e
	}
	return &Error{
		Code:       codeForStatus(status),
		HTTPStatus: status,
		Message:    http.StatusText(status),
	}
}

// parseStructuredJSON handles shapes 1 and 2. The colon-delimited sub-code is
// only split out when the explicit status field is absent.
func parseStructuredJSON(status int, body []byte) *Error {
	var we wireError
	if err := json.Unmarshal(body, &we); err != nil {
		return nil
	}
	if we.Error.Code == 0 && we.Error.Status == "" && we.Error.Message == "" {
		return nil
	}

	httpStatus := we.Error.Code
	if httpStatus == 0 {
		httpStatus = status
	}
	subCode := we.Error.Status
	message := we.Error.Message
	if subCode == "" {
		if m := subCodeRe.FindStringSubmatch(message); m != nil {
			subCode = m[1]
			message = m[2]
		}
	}

	return &Error{
		Code:       codeForSubCode(subCode, httpStatus),
		HTTPStatus: httpStatus,
		SubCode:    subCode,
		Message:    message,
	}
}

// parseTextBanner handles shape 3.
func parseTextBanner(status int, body []byte) *Error {
	text := strings.TrimSpace(string(body))
	if text == "" || json.Valid(body) {
		return nil
	}
	httpStatus := status
	if m := bannerCodeRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			httpStatus = n
		}
	}
	if len(text) > 256 {
		text = text[:256]
	}
	return &Error{
		Code:       codeForStatus(httpStatus),
		HTTPStatus: httpStatus,
		Message:    text,
	}
}

func codeForSubCode(subCode string, status int) Code {
	switch subCode {
	case "INVALID_ARGUMENT", "FAILED_PRECONDITION":
		return CodeInvalidArgument
	case "PERMISSION_DENIED", "UNAUTHENTICATED":
		return CodePermissionDenied
	case "INTERNAL":
		return CodeInternal
	case "UNAVAILABLE", "RESOURCE_EXHAUSTED":
		return CodeUnavailable
	case "":
		return codeForStatus(status)
	default:
		return codeForStatus(status)
	}
}
