package csvimport

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, p *Parser) []*Row {
	t.Helper()
	var rows []*Row
	for {
		row, err := p.Next()
		if errors.Is(err, io.EOF) {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestParser(t *testing.T) {
	t.Run("strips BOM and normalizes headers", func(t *testing.T) {
		p, err := NewParser(strings.NewReader("\xEF\xBB\xBF Name ,EMAIL\nJane, jane@acme.test \n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"name", "email"}, p.Headers())

		rows := readAll(t, p)
		require.Len(t, rows, 1)
		assert.Equal(t, 2, rows[0].Line)
		assert.Equal(t, "Jane", rows[0].Get("Name"))
		assert.Equal(t, "jane@acme.test", rows[0].Get("email"))
	})

	t.Run("skips blank rows and pads short ones", func(t *testing.T) {
		p, err := NewParser(strings.NewReader("name,company\nA\n,\nB,Globex\n"))
		require.NoError(t, err)
		rows := readAll(t, p)
		require.Len(t, rows, 2)
		assert.Equal(t, "", rows[0].Get("company"))
		assert.Equal(t, 4, rows[1].Line)
	})

	t.Run("custom delimiter", func(t *testing.T) {
		p, err := NewParser(strings.NewReader("name;company\nA;Acme\n"), WithDelimiter(';'))
		require.NoError(t, err)
		assert.Equal(t, "Acme", readAll(t, p)[0].Get("company"))
	})

	t.Run("missing headers", func(t *testing.T) {
		p, err := NewParser(strings.NewReader("company\nAcme\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"name"}, p.MissingHeaders("name", "company"))
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, err := NewParser(strings.NewReader(""))
		assert.ErrorIs(t, err, ErrEmptyFile)

		_, err = NewParser(strings.NewReader("\xEF\xBB\xBF  \n"))
		assert.ErrorIs(t, err, ErrEmptyFile)

		_, err = NewParser(strings.NewReader("name\n\xff\xfe\n"))
		assert.ErrorIs(t, err, ErrInvalidEncoding)

		_, err = NewParser(strings.NewReader(",,\nA,B\n"))
		assert.ErrorIs(t, err, ErrMissingHeader)
	})

	t.Run("multibyte rune at the peek boundary", func(t *testing.T) {
		content := "name\n" + strings.Repeat("a", peekSize-6) + "é\n"
		p, err := NewParser(strings.NewReader(content))
		require.NoError(t, err)
		assert.Len(t, readAll(t, p), 1)
	})
}
