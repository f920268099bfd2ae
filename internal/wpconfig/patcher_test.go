package wpconfig_test

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/techmail/internal/wpconfig"
)

const sampleConfig = `<?php
define( 'DB_NAME', 'wordpress' );
define( 'DB_USER', 'root' );

/* That's all, stop editing! Happy publishing. */

require_once ABSPATH . 'wp-settings.php';
`

func writeConfig(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
}

func readConfig(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

func TestPatch_InsertBeforeSentinel(t *testing.T) {
	out := wpconfig.Patch(sampleConfig, "tech@example.com", false)

	assert.Contains(t, out, "define( 'RECOVERY_MODE_EMAIL', 'tech@example.com' );\n/* That's all")
	assert.Equal(t, 1, strings.Count(out, "RECOVERY_MODE_EMAIL"))
	assert.Equal(t, sampleConfig, wpconfig.Patch(out, "", true), "remove restores the original")
}

func TestPatch_AppendWithoutSentinel(t *testing.T) {
	in := "<?php\ndefine( 'WP_DEBUG', false );\n"
	out := wpconfig.Patch(in, "tech@example.com", false)

	assert.Equal(t, in+"\ndefine( 'RECOVERY_MODE_EMAIL', 'tech@example.com' );", out)
	assert.Equal(t, in, wpconfig.Patch(out, "", true))
}

func TestPatch_Idempotent(t *testing.T) {
	once := wpconfig.Patch(sampleConfig, "tech@example.com", false)
	twice := wpconfig.Patch(once, "tech@example.com", false)
	assert.Equal(t, once, twice)
}

func TestPatch_ReplaceInPlace(t *testing.T) {
	first := wpconfig.Patch(sampleConfig, "a@example.com", false)
	second := wpconfig.Patch(first, "longer-address@example.com", false)

	assert.Equal(t, len(first)+len("longer-address@example.com")-len("a@example.com"), len(second))
	firstLines := strings.Split(first, "\n")
	secondLines := strings.Split(second, "\n")
	require.Len(t, secondLines, len(firstLines))
	for i := range firstLines {
		if strings.Contains(firstLines[i], wpconfig.ConstantName) {
			assert.Equal(t, wpconfig.Declaration("longer-address@example.com"), secondLines[i])
			continue
		}
		assert.Equal(t, firstLines[i], secondLines[i])
	}
}

func TestPatch_ToleratesQuoteAndSpacing(t *testing.T) {
	in := "<?php\ndefine(\"RECOVERY_MODE_EMAIL\",\"old@example.com\");\n$x = 1;\n"
	out := wpconfig.Patch(in, "new@example.com", false)
	assert.Equal(t, "<?php\ndefine( 'RECOVERY_MODE_EMAIL', 'new@example.com' );\n$x = 1;\n", out)

	value, ok := wpconfig.Find(out)
	require.True(t, ok)
	assert.Equal(t, "new@example.com", value)
}

func TestPatch_RemoveWithoutDeclaration(t *testing.T) {
	assert.Equal(t, sampleConfig, wpconfig.Patch(sampleConfig, "", true))
}

func TestPatch_CollapsesDuplicates(t *testing.T) {
	in := "<?php\ndefine( 'RECOVERY_MODE_EMAIL', 'a@example.com' );\n$x = 1;\ndefine('RECOVERY_MODE_EMAIL', 'b@example.com');\n"
	out := wpconfig.Patch(in, "c@example.com", false)
	assert.Equal(t, "<?php\ndefine( 'RECOVERY_MODE_EMAIL', 'c@example.com' );\n$x = 1;\n", out)
}

func TestPatch_SkipsCommentedDeclarations(t *testing.T) {
	in := "<?php\n// define( 'RECOVERY_MODE_EMAIL', 'old@example.com' );\ndefine( 'RECOVERY_MODE_EMAIL', 'old@example.com' );\n$x = 1;\n"

	out := wpconfig.Patch(in, "new@example.com", false)
	assert.Equal(t, "<?php\n// define( 'RECOVERY_MODE_EMAIL', 'old@example.com' );\ndefine( 'RECOVERY_MODE_EMAIL', 'new@example.com' );\n$x = 1;\n", out)

	value, ok := wpconfig.Find(out)
	require.True(t, ok)
	assert.Equal(t, "new@example.com", value)

	removed := wpconfig.Patch(out, "", true)
	assert.Equal(t, "<?php\n// define( 'RECOVERY_MODE_EMAIL', 'old@example.com' );\n$x = 1;\n", removed)
	_, ok = wpconfig.Find(removed)
	assert.False(t, ok)

	for _, c := range []string{
		"# define( 'RECOVERY_MODE_EMAIL', 'a@example.com' );",
		"/* define( 'RECOVERY_MODE_EMAIL', 'a@example.com' ); */",
		"/**\n * define( 'RECOVERY_MODE_EMAIL', 'a@example.com' );\n */",
	} {
		commented := "<?php\n" + c + "\n"
		assert.Equal(t, commented, wpconfig.Patch(commented, "", true))
		assert.Contains(t, wpconfig.Patch(commented, "b@example.com", false), c)
	}
}

func TestPatch_SharedLine(t *testing.T) {
	in := "<?php\nif ( ! defined( 'RECOVERY_MODE_EMAIL' ) ) define( 'RECOVERY_MODE_EMAIL', 'a@example.com' );\n$x = 1;\n"

	assert.Equal(t, in, wpconfig.Patch(in, "", true), "a guarded declaration is never cut out")
	assert.True(t, wpconfig.Embedded(in))

	out := wpconfig.Patch(in, "b@example.com", false)
	assert.Equal(t, strings.Replace(in, "a@example.com", "b@example.com", 1), out)

	dup := "<?php\ndefine( 'RECOVERY_MODE_EMAIL', 'a@example.com' );\nif ( $x ) define( 'RECOVERY_MODE_EMAIL', 'z@example.com' );\n"
	assert.Equal(t,
		"<?php\ndefine( 'RECOVERY_MODE_EMAIL', 'c@example.com' );\nif ( $x ) define( 'RECOVERY_MODE_EMAIL', 'c@example.com' );\n",
		wpconfig.Patch(dup, "c@example.com", false))
}

func TestPatch_IndentedSentinel(t *testing.T) {
	in := "<?php\n$x = 1;\n\t/* That's all, stop editing! Happy publishing. */\nrequire_once 'wp-settings.php';\n"

	out := wpconfig.Patch(in, "tech@example.com", false)
	assert.Contains(t, out, "\ndefine( 'RECOVERY_MODE_EMAIL', 'tech@example.com' );\n\t/* That's all")
	assert.Equal(t, in, wpconfig.Patch(out, "", true))

	indented := "<?php\n    define( 'RECOVERY_MODE_EMAIL', 'a@example.com' );  \n$x = 1;\n"
	assert.Equal(t, "<?php\n$x = 1;\n", wpconfig.Patch(indented, "", true))
}

func TestPatch_CRLF(t *testing.T) {
	in := "<?php\r\n$x = 1;\r\n/* That's all, stop editing! Happy blogging. */\r\n"
	out := wpconfig.Patch(in, "tech@example.com", false)
	assert.Contains(t, out, "'tech@example.com' );\r\n/* That's all")
	assert.Equal(t, in, wpconfig.Patch(out, "", true))
}

func TestDeclaration_EscapesValue(t *testing.T) {
	decl := wpconfig.Declaration("x'); system('id'); //\n@example.com")
	assert.Equal(t, `define( 'RECOVERY_MODE_EMAIL', 'x\'); system(\'id\'); //@example.com' );`, decl)

	value, ok := wpconfig.Find("<?php\n" + decl + "\n")
	require.True(t, ok)
	assert.Equal(t, "x'); system('id'); //@example.com", value)

	assert.Equal(t, `define( 'RECOVERY_MODE_EMAIL', 'a\\b' );`, wpconfig.Declaration(`a\b`))
}

func TestPatcher_Locate(t *testing.T) {
	t.Run("Primary path", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeConfig(t, fs, "/srv/site/wp-config.php", sampleConfig)
		writeConfig(t, fs, "/srv/wp-config.php", sampleConfig)

		path, err := wpconfig.NewPatcher(fs, "/srv/site/", nil).Locate()
		require.NoError(t, err)
		assert.Equal(t, "/srv/site/wp-config.php", path)
	})

	t.Run("Parent directory", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, fs.MkdirAll("/srv/site", 0755))
		writeConfig(t, fs, "/srv/wp-config.php", sampleConfig)

		path, err := wpconfig.NewPatcher(fs, "/srv/site", nil).Locate()
		require.NoError(t, err)
		assert.Equal(t, "/srv/wp-config.php", path)
	})

	t.Run("Not found", func(t *testing.T) {
		_, err := wpconfig.NewPatcher(afero.NewMemMapFs(), "/srv/site", nil).Locate()
		assert.ErrorIs(t, err, wpconfig.ErrConfigNotFound)
	})
}

func TestPatcher_Apply(t *testing.T) {
	const path = "/srv/site/wp-config.php"

	t.Run("Round trip", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeConfig(t, fs, path, sampleConfig)
		p := wpconfig.NewPatcher(fs, "/srv/site", nil)

		p.Apply("tech@example.com", false)
		after := readConfig(t, fs, path)
		assert.Equal(t, 1, strings.Count(after, "'tech@example.com'"))

		current, ok := p.Current()
		require.True(t, ok)
		assert.Equal(t, "tech@example.com", current)

		changed, err := p.Update("tech@example.com", false)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, after, readConfig(t, fs, path))

		p.Apply("", true)
		assert.Equal(t, sampleConfig, readConfig(t, fs, path))
	})

	t.Run("Missing file is a no-op", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		p := wpconfig.NewPatcher(fs, "/srv/site", nil)
		p.Apply("tech@example.com", false)

		exists, err := afero.Exists(fs, path)
		require.NoError(t, err)
		assert.False(t, exists, "the config file must not be created")
	})

	t.Run("Read-only file is a no-op", func(t *testing.T) {
		base := afero.NewMemMapFs()
		writeConfig(t, base, path, sampleConfig)
		p := wpconfig.NewPatcher(afero.NewReadOnlyFs(base), "/srv/site", nil)

		_, err := p.Update("tech@example.com", false)
		assert.ErrorIs(t, err, wpconfig.ErrNotWritable)

		p.Apply("tech@example.com", false)
		assert.Equal(t, sampleConfig, readConfig(t, base, path))
	})
}
