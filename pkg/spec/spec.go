package spec

const (
	// === IDENTITY & VERSIONING ===
	AppName      = "soundslot"
	VersionMajor = 1
	VersionMinor = 0

	// === ICONS ===
	IconPlay  = "ic_media_play"
	IconPause = "ic_media_pause"
	IconSize  = 48

	// === ASSET NAMING ===
	// <MD5>_#_<name>.<ext>
	FileNameSeparator = "_#_"

	// === SEALED OPUS ASSETS (.opx) ===
	SealedMagic     = "SSLOPX01"
	SealedExt       = ".opx"
	Salt            = "SSLT"
	NonceSize       = 12
	OpusSampleRate  = 48000
	OpusChannels    = 2
	OpusFrameMillis = 20
	MaxOpusFrame    = 5760

	// === DEFAULTS ===
	DefaultSocket     = "/tmp/soundslot.sock"
	DefaultDataDir    = ".soundslot"
	DefaultSampleRate = 48000
	DefaultBufferMS   = 100
	DefaultRows       = 8
)
