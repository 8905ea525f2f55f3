package sheets

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"checkin/internal/domain"
)

var (
	publishedPathRe = regexp.MustCompile(`^/spreadsheets/d/e/([A-Za-z0-9_-]+)`)
	sheetPathRe     = regexp.MustCompile(`^/spreadsheets/d/([A-Za-z0-9_-]+)`)
	gidRe           = regexp.MustCompile(`(?:^|[&#?])gid=(\d+)`)
)

// ExportURL turns a sheet URL as pasted by a human (editor, viewer or
// "publish to web" link) into a direct CSV export URL, keeping the tab (gid).
// URLs outside Google Sheets are returned unchanged.
func ExportURL(sheetURL string) (string, error) {
	sheetURL = strings.TrimSpace(sheetURL)
	if sheetURL == "" {
		return "", fmt.Errorf("sheets: SHEET_URL est requis: %w", domain.ErrSourceMisconfigured)
	}
	u, err := url.Parse(sheetURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("sheets: URL invalide %q: %w", sheetURL, domain.ErrSourceMisconfigured)
	}
	if u.Host != "docs.google.com" {
		return u.String(), nil
	}

	gid := u.Query().Get("gid")
	if gid == "" {
		if m := gidRe.FindStringSubmatch(u.Fragment); m != nil {
			gid = m[1]
		}
	}

	q := url.Values{}
	switch {
	case publishedPathRe.MatchString(u.Path):
		id := publishedPathRe.FindStringSubmatch(u.Path)[1]
		u.Path = "/spreadsheets/d/e/" + id + "/pub"
		q.Set("output", "csv")
		if gid != "" {
			q.Set("gid", gid)
			q.Set("single", "true")
		}
	case sheetPathRe.MatchString(u.Path):
		id := sheetPathRe.FindStringSubmatch(u.Path)[1]
		u.Path = "/spreadsheets/d/" + id + "/export"
		q.Set("format", "csv")
		if gid != "" {
			q.Set("gid", gid)
		}
	default:
		return "", fmt.Errorf("sheets: URL Google Sheets non reconnue %q: %w", sheetURL, domain.ErrSourceMisconfigured)
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String(), nil
}
