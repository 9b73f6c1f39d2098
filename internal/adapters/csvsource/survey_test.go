package csvsource_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"market_intel/internal/adapters/csvsource"
	"market_intel/internal/app"
	"market_intel/internal/domain"
)

func TestSurveyReader_Latin1(t *testing.T) {
	utf := "Market,<strong>Café Living</strong> aided,Cortland Unaided\nAtlanta,1,\nAtlanta,,x\n"
	raw, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(utf))
	require.NoError(t, err)

	read, err := csvsource.NewSurveyReader("latin1")
	require.NoError(t, err)
	table, err := read(bytes.NewReader(raw))
	require.NoError(t, err)

	require.Len(t, table.Header, 3)
	assert.Equal(t, "<strong>Café Living</strong> aided", table.Header[1])
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "x", table.Rows[1][2])

	// decoded headers feed straight into the normalizer
	resp, err := app.NormalizeSurvey(table, nil)
	require.NoError(t, err)
	assert.True(t, resp[0].Aided[app.BrandKey("Café Living")])
}

func TestSurveyReader_Latin1WithUTF8BOM(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, "Market,Cortland Unaided\nAtlanta,x\n"...)

	read, err := csvsource.NewSurveyReader("latin1")
	require.NoError(t, err)
	table, err := read(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "Market", table.Header[0])

	resp, err := app.NormalizeSurvey(table, []domain.UnaidedColumn{{Header: "Cortland Unaided", Key: "cortland"}})
	require.NoError(t, err)
	require.Len(t, resp, 1)
	require.NotNil(t, resp[0].Market)
	assert.Equal(t, "Atlanta", *resp[0].Market)
}

func TestSurveyReader_UTF8AndErrors(t *testing.T) {
	read, err := csvsource.NewSurveyReader("UTF8")
	require.NoError(t, err)
	table, err := read(strings.NewReader("\ufeffMarket,Camden Unaided\nDallas,yes\n"))
	require.NoError(t, err)
	assert.Equal(t, "Market", table.Header[0])

	_, err = csvsource.NewSurveyReader("ebcdic")
	assert.Error(t, err)

	_, err = read(strings.NewReader(""))
	assert.Error(t, err)
}

func TestFileSource_Signature(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sites.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\n"), 0o644))

	src := csvsource.NewFileSource("properties", path)
	assert.Equal(t, "properties", src.Name())

	ctx := context.Background()
	s1, err := src.Signature(ctx)
	require.NoError(t, err)
	s2, _ := src.Signature(ctx)
	assert.Equal(t, s1, s2, "unchanged file keeps its signature")

	require.NoError(t, os.WriteFile(path, []byte("a\nb\n"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	s3, _ := src.Signature(ctx)
	assert.NotEqual(t, s1, s3)

	rc, err := src.Open(ctx)
	require.NoError(t, err)
	defer rc.Close()

	_, err = csvsource.NewFileSource("missing", filepath.Join(dir, "nope.csv")).Signature(ctx)
	assert.Error(t, err)
}
