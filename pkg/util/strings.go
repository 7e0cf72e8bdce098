package util

import "strings"

// BaseName returns the part of a blob or file path after the last slash
func BaseName(name string) string {
	return name[strings.LastIndex(name, "/")+1:]
}

func FirstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}

	return ""
}
