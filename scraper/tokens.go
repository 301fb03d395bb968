package scraper

import (
	"fmt"
	"regexp"
)

const (
	fieldViewState          = "__VIEWSTATE"
	fieldViewStateGenerator = "__VIEWSTATEGENERATOR"
	fieldEventValidation    = "__EVENTVALIDATION"
	fieldToolkitHidden      = "main_ToolkitScriptManager1_HiddenField"
)

var (
	viewStateRe          = hiddenValueRe(fieldViewState)
	viewStateGeneratorRe = hiddenValueRe(fieldViewStateGenerator)
	eventValidationRe    = hiddenValueRe(fieldEventValidation)
	toolkitHiddenRe      = hiddenValueRe(fieldToolkitHidden)
)

func hiddenValueRe(id string) *regexp.Regexp {
	return regexp.MustCompile(`id="` + regexp.QuoteMeta(id) + `" value="(.*)"`)
}

// pageTokens are the hidden fields that must be echoed back on every
// postback of the same page.
type pageTokens struct {
	ViewState          string
	ViewStateGenerator string
	EventValidation    string
	ToolkitHidden      string
}

func extractTokens(body string) (pageTokens, error) {
	var t pageTokens
	fields := []struct {
		name string
		re   *regexp.Regexp
		dst  *string
	}{
		{fieldViewState, viewStateRe, &t.ViewState},
		{fieldViewStateGenerator, viewStateGeneratorRe, &t.ViewStateGenerator},
		{fieldEventValidation, eventValidationRe, &t.EventValidation},
		{fieldToolkitHidden, toolkitHiddenRe, &t.ToolkitHidden},
	}
	for _, f := range fields {
		m := f.re.FindStringSubmatch(body)
		if m == nil {
			return pageTokens{}, fmt.Errorf("%w: %s", ErrProtocolTokenMissing, f.name)
		}
		*f.dst = m[1]
	}
	return t, nil
}
