package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/draftsmith/internal/apperr"
)

func strPtr(s string) *string { return &s }

func testTemplate(id, category string, priority int, tags ...string) Template {
	return Template{
		ID:       id,
		Category: category,
		Priority: priority,
		Tags:     tags,
		Subject:  "{{subject}}",
		Body:     "{{greeting}},\n\n{{body}}\n\n{{sign_off}}",
		Variables: []Variable{
			{Name: "subject", Fill: FillContext},
			{Name: "greeting", Fill: FillContext, Default: strPtr("Hi")},
			{Name: "body", Fill: FillAI, Primary: true},
			{Name: "sign_off", Fill: FillAI, Optional: true},
		},
	}
}

func TestBuiltin_AllValidAndCovered(t *testing.T) {
	ts, err := Builtin()
	require.NoError(t, err)
	require.Len(t, ts, 6)

	c, err := New(ts...)
	require.NoError(t, err)
	for _, cat := range BuiltinCategories {
		assert.NotEmpty(t, c.List(cat), "category %s has no template", cat)
	}

	tpl, err := c.Get("business_formal_standard")
	require.NoError(t, err)
	assert.Equal(t, BusinessFormal, tpl.Category)
	primary, ok := tpl.PrimarySlot()
	require.True(t, ok)
	assert.Equal(t, "body", primary.Name)
}

func TestGet_NotFound(t *testing.T) {
	c, err := New(testTemplate("a", BusinessFormal, 1))
	require.NoError(t, err)

	_, err = c.Get("missing")
	assert.True(t, errors.Is(err, apperr.NotFound))
}

func TestList_OrderAndFilter(t *testing.T) {
	c, err := New(
		testTemplate("z_sales", SalesPersuasive, 1),
		testTemplate("b_formal", BusinessFormal, 5),
		testTemplate("a_formal", BusinessFormal, 5),
		testTemplate("c_formal", BusinessFormal, 1),
		testTemplate("custom", "newsletter", 1),
	)
	require.NoError(t, err)

	var ids []string
	for _, tpl := range c.List("") {
		ids = append(ids, tpl.ID)
	}
	assert.Equal(t, []string{"c_formal", "a_formal", "b_formal", "z_sales", "custom"}, ids)
	assert.Len(t, c.List(BusinessFormal), 3)
	assert.Equal(t, "newsletter", c.Categories()[len(c.Categories())-1])
}

func TestMatch_TieBreaks(t *testing.T) {
	c, err := New(
		testTemplate("formal_b", BusinessFormal, 5),
		testTemplate("formal_a", BusinessFormal, 5),
		testTemplate("formal_low", BusinessFormal, 9, "meeting"),
	)
	require.NoError(t, err)

	got, err := c.Match(BusinessFormal, nil)
	require.NoError(t, err)
	assert.Equal(t, "formal_a", got.ID, "no keywords: priority then id")

	got, err = c.Match(BusinessFormal, []string{"quarterly", "meeting"})
	require.NoError(t, err)
	assert.Equal(t, "formal_low", got.ID, "tag overlap wins over priority")

	_, err = c.Match(SalesFollowUp, nil)
	assert.True(t, errors.Is(err, apperr.NotFound))
}

func TestNew_LaterOverridesEarlier(t *testing.T) {
	first := testTemplate("same", BusinessFormal, 1)
	second := testTemplate("same", CasualFriendly, 1)
	c, err := New(first, second)
	require.NoError(t, err)

	got, err := c.Get("same")
	require.NoError(t, err)
	assert.Equal(t, CasualFriendly, got.Category)
	assert.Equal(t, 1, c.Len())
}

func TestRender(t *testing.T) {
	tpl := testTemplate("a", BusinessFormal, 1)
	vars := map[string]string{
		"subject":  "Hello",
		"greeting": "Hi Ann",
		"body":     "Body text.",
		"sign_off": "",
		"unused":   "ignored",
	}

	first, err := Render(tpl, vars)
	require.NoError(t, err)
	second, err := Render(tpl, vars)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "Hello", first.Subject)
	assert.Equal(t, "Hi Ann,\n\nBody text.", first.Body)
}

func TestRender_MissingVariable(t *testing.T) {
	tpl := testTemplate("a", BusinessFormal, 1)
	_, err := Render(tpl, map[string]string{"subject": "s", "greeting": "g", "sign_off": ""})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.MissingVariable))
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "body", ae.Slot)
}

func TestValidate_UndeclaredPlaceholder(t *testing.T) {
	tpl := testTemplate("a", BusinessFormal, 1)
	tpl.Body += "\n{{ps}}"

	err := tpl.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.CorruptTemplate))
	assert.Contains(t, err.Error(), "{{ps}}")
}

func TestValidate_BadVariables(t *testing.T) {
	tpl := testTemplate("a", BusinessFormal, 1)
	tpl.Variables = append(tpl.Variables,
		Variable{Name: "body", Fill: FillAI},
		Variable{Name: "Bad-Name", Fill: "human"},
		Variable{Name: "ctx", Fill: FillContext, Primary: true},
	)
	err := tpl.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `duplicate variable "body"`)
	assert.Contains(t, msg, `invalid variable name "Bad-Name"`)
	assert.Contains(t, msg, "only ai slots can be primary")
}

func TestParseSerializeRoundTrip(t *testing.T) {
	tpl := testTemplate("round", CasualCheckIn, 3, "check in")
	tpl.Name = "Round trip"
	tpl.Description = "desc"

	data, err := Serialize(tpl)
	require.NoError(t, err)

	got, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, tpl, got)
}

func TestParse_Corrupt(t *testing.T) {
	cases := map[string]string{
		"no delimiter": "id: x\n",
		"unterminated": "---\nid: x\n",
		"bad yaml":     "---\nid: [x\n---\nbody",
		"invalid":      "---\nid: x\ncategory: c\nvariables: []\n---\n{{nope}}",
	}
	for name, content := range cases {
		_, err := Parse([]byte(content))
		assert.True(t, errors.Is(err, apperr.CorruptTemplate), name)
	}
}

func TestLoad_CustomOverridesAndSkipsBroken(t *testing.T) {
	dir := t.TempDir()

	custom := testTemplate("business_formal_standard", BusinessFormal, 1)
	custom.Name = "Mine"
	path, err := WriteFile(dir, custom, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, BusinessFormal, "business_formal_standard.md"), path)

	_, err = WriteFile(dir, custom, false)
	assert.True(t, errors.Is(err, apperr.InvalidRequest), "refuses to overwrite")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.md"), []byte("not a template"), 0o644))

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 6, c.Len())

	skipped := c.Skipped()
	require.Len(t, skipped, 1)
	assert.Equal(t, filepath.Join(dir, "broken.md"), skipped[0].Path)
	assert.True(t, errors.Is(skipped[0].Err, apperr.CorruptTemplate))

	got, err := c.Get("business_formal_standard")
	require.NoError(t, err)
	assert.Equal(t, "Mine", got.Name)
	assert.Equal(t, path, got.Source)
}

func TestLoad_MissingDir(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Equal(t, 6, c.Len())
	assert.Empty(t, c.Skipped())
}

func TestSearch(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	got := c.Search("inquiry")
	require.NotEmpty(t, got)
	assert.Equal(t, "business_inquiry", got[0].ID)
	assert.Len(t, c.Search(""), 6)
}
