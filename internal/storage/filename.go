// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"path"
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"
)

const maxNameLength = 120

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	unsafeChars   = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	hyphenRun     = regexp.MustCompile(`-{2,}`)
)

// SanitizeFilename turns a client-supplied file name into a safe base name.
// Directory components are dropped, non-ASCII text is transliterated,
// whitespace runs become "-" and the result always ends in ".pdf".
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(name)
	if name == "." || name == "/" {
		name = ""
	}

	name = unidecode.Unidecode(norm.NFKC.String(name))
	name = whitespaceRun.ReplaceAllString(strings.TrimSpace(name), "-")
	name = unsafeChars.ReplaceAllString(name, "")
	name = hyphenRun.ReplaceAllString(name, "-")

	stem := name
	if strings.HasSuffix(strings.ToLower(stem), ".pdf") {
		stem = stem[:len(stem)-len(".pdf")]
	}
	stem = strings.Trim(stem, ".-")
	if stem == "" {
		stem = "document"
	}
	if len(stem) > maxNameLength {
		stem = strings.TrimRight(stem[:maxNameLength], ".-")
	}

	return stem + ".pdf"
}
