package util

// MaskSecret shows the first four characters of long secrets and hides the
// rest. Short or empty secrets are hidden entirely.
func MaskSecret(s string) string {
	switch {
	case s == "":
		return "(unset)"
	case len(s) <= 8:
		return "***"
	default:
		return s[:4] + "***"
	}
}
