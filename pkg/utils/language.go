package utils

import (
	"path/filepath"
	"strings"
)

var extensionLanguages = map[string]string{
	".go":    "Go",
	".py":    "Python",
	".js":    "JavaScript",
	".jsx":   "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".java":  "Java",
	".kt":    "Kotlin",
	".rb":    "Ruby",
	".rs":    "Rust",
	".c":     "C",
	".h":     "C",
	".cpp":   "C++",
	".cc":    "C++",
	".hpp":   "C++",
	".cs":    "C#",
	".php":   "PHP",
	".swift": "Swift",
	".scala": "Scala",
	".sql":   "SQL",
	".sh":    "Shell",
	".html":  "HTML",
	".css":   "CSS",
}

// DetectLanguage guesses the language from the file extension, "" if unknown.
func DetectLanguage(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return extensionLanguages[ext]
}
