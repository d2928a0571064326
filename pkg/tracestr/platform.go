package tracestr

// Platform characters jointly encode OS, architecture and whether the build
// is a compatibility ("baseline") build. Lowercase letters are x86_64,
// uppercase are aarch64; baseline variants get their own letters. The table
// is part of the wire contract and must never be reordered or reused.
var platformChars = map[platformKey]byte{
	{"linux", "amd64", false}:   'l',
	{"linux", "arm64", false}:   'L',
	{"linux", "amd64", true}:    'b',
	{"linux", "arm64", true}:    'B',
	{"darwin", "amd64", false}:  'm',
	{"darwin", "arm64", false}:  'M',
	{"windows", "amd64", false}: 'w',
	{"windows", "arm64", false}: 'W',
	{"windows", "amd64", true}:  'e',
	{"windows", "arm64", true}:  'E',
}

type platformKey struct {
	goos     string
	goarch   string
	baseline bool
}

// PlatformChar returns the wire character for an OS/arch pair, and whether
// the pair is part of the recognized table.
func PlatformChar(goos, goarch string, baseline bool) (byte, bool) {
	c, ok := platformChars[platformKey{goos, goarch, baseline}]
	return c, ok
}

// UnknownPlatform is emitted for builds outside the recognized table so the
// remapping service can reject them explicitly.
const UnknownPlatform = 'u'
