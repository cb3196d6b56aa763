package recipe

import "strings"

const (
	loadFailedBase     = "We couldn't load that recipe."
	loadGuidance       = "Please confirm the recipe link is correct and try again."
	unsupportedSite    = "We couldn't load that recipe. The website is not supported. Try pasting content into Convert Text."
	convertFailedBase  = "We couldn't convert that recipe just yet."
	convertGuidance    = "Please tweak the text and try again."
	listFailedFallback = "Failed to load recipes."
)

// LoadErrorMessage turns a backend failure reason for URL or id lookups into
// a message for the page.
func LoadErrorMessage(reason string) string {
	reason = strings.TrimSpace(reason)
	lower := strings.ToLower(reason)

	if strings.Contains(lower, "website") || strings.Contains(lower, "forbidden") {
		return unsupportedSite
	}
	if reason == "" || lower == "failed to parse recipe." {
		return loadFailedBase + " " + loadGuidance
	}
	return loadFailedBase + " Details: " + reason
}

// ConvertErrorMessage is LoadErrorMessage for raw text conversion.
func ConvertErrorMessage(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" || strings.ToLower(reason) == "failed to convert recipe text." {
		return convertFailedBase + " " + convertGuidance
	}
	return convertFailedBase + " Details: " + reason
}

// ListErrorMessage prefers the backend's reason.
func ListErrorMessage(reason string) string {
	if reason = strings.TrimSpace(reason); reason != "" {
		return reason
	}
	return listFailedFallback
}
