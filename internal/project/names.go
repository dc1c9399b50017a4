package project

// ValidProjectName reports whether name uses only ASCII letters, digits and
// hyphens.
func ValidProjectName(name string) bool {
	return validName(name, func(r rune) bool {
		return isLower(r) || isUpper(r) || isDigit(r) || r == '-'
	})
}

// ValidTourID reports whether id uses only lowercase ASCII letters, digits
// and hyphens.
func ValidTourID(id string) bool {
	return validName(id, func(r rune) bool {
		return isLower(r) || isDigit(r) || r == '-'
	})
}

// ValidAssetName reports whether name uses only ASCII letters, digits, dots
// and hyphens and is not "." or "..".
func ValidAssetName(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return validName(name, func(r rune) bool {
		return isLower(r) || isUpper(r) || isDigit(r) || r == '-' || r == '.'
	})
}

func validName(s string, ok func(rune) bool) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !ok(r) {
			return false
		}
	}
	return true
}

func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }
