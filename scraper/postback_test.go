package scraper

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTokens = pageTokens{
	ViewState:          "/wEPDwUK+vs=",
	ViewStateGenerator: "6A5C0F8B",
	EventValidation:    "/wEdAA+ev==",
	ToolkitHidden:      ";;AjaxControlToolkit",
}

func decodeForm(t *testing.T, body string) postbackForm {
	t.Helper()
	var out postbackForm
	for _, pair := range strings.Split(body, "&") {
		name, value, found := strings.Cut(pair, "=")
		require.True(t, found, "pair %q", pair)
		n, err := url.QueryUnescape(name)
		require.NoError(t, err)
		v, err := url.QueryUnescape(value)
		require.NoError(t, err)
		out = append(out, formField{n, v})
	}
	return out
}

func TestHoldFormLayout(t *testing.T) {
	req, err := NewBookingRequest("2021-09-30", "09301030", "130")
	require.NoError(t, err)

	form := newHoldForm(testTokens, req)
	require.Len(t, form, postbackSize)

	assert.Equal(t, formField{"__VIEWSTATE", testTokens.ViewState}, form[0])
	assert.Equal(t, formField{"__VIEWSTATEGENERATOR", testTokens.ViewStateGenerator}, form[1])
	assert.Equal(t, formField{"__EVENTVALIDATION", testTokens.EventValidation}, form[2])
	assert.Equal(t, formField{"main_ToolkitScriptManager1_HiddenField", testTokens.ToolkitHidden}, form[3])
	assert.Equal(t, formField{"ctl00$main$ToolkitScriptManager1", "ctl00$main$upMain|ctl00$main$btnSubmit"}, form[4])
	assert.Equal(t, formField{"ctl00$main$ddlLibrary", "3"}, form[8])
	assert.Equal(t, formField{"ctl00$main$ddlFloor", "3"}, form[9])
	assert.Equal(t, formField{"ctl00$main$ddlType", "21"}, form[10])
	assert.Equal(t, formField{"ctl00$main$ddlFacility", "130"}, form[11])
	assert.Equal(t, formField{"ctl00$main$ddlDate", "2021-09-30"}, form[12])
	assert.Equal(t, formField{"ctl00$main$listSession$1", "09301030"}, form[13])
	assert.Equal(t, formField{"__ASYNCPOST", "true"}, form[19])
	assert.Equal(t, formField{"ctl00$main$btnSubmit", "Submit"}, form[20])
	assert.Equal(t, formField{"", ""}, form[21])
}

func TestConfirmFormKeepsTokens(t *testing.T) {
	req := NewExplicitBookingRequest("2021-09-30", "08300930", "0", "3", "3", "21", "129")
	hold := newHoldForm(testTokens, req)
	confirm := hold.confirm()

	require.Len(t, confirm, postbackSize)
	assert.Equal(t, hold[:20], confirm[:20])
	assert.Equal(t, formField{"ctl00$main$btnSubmitYes", "Yes"}, confirm[20])
	assert.Equal(t, formField{"ctl00$main$ToolkitScriptManager1", "ctl00$main$UpdatePanel3|ctl00$main$btnSubmitYes"}, confirm[21])

	// the hold form is left untouched
	assert.Equal(t, formField{"ctl00$main$btnSubmit", "Submit"}, hold[20])
	assert.Equal(t, formField{"", ""}, hold[21])
}

func TestEncodeKeepsOrderAndDuplicates(t *testing.T) {
	form := postbackForm{
		{"b", "2"},
		{"a", "1 +/="},
		{"b", "3"},
		{"", ""},
	}
	assert.Equal(t, "b=2&a=1+%2B%2F%3D&b=3&=", form.Encode())
}

func TestEncodeRoundTrip(t *testing.T) {
	req := NewExplicitBookingRequest("2021-09-30", "08300930", "0", "3", "3", "21", "129")
	form := newHoldForm(testTokens, req).confirm()
	assert.Equal(t, form, decodeForm(t, form.Encode()))
}
