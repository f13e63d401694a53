package mp4

// TrackMediaType classifies a trak by its hdlr subtype fourCC.
type TrackMediaType int

const (
	TrackMediaUnknown TrackMediaType = iota
	TrackMediaVisual
	TrackMediaSound
	TrackMediaText
	TrackMediaSubtitle
	TrackMediaBase
	TrackMediaClosedCaption
	TrackMediaHint
	TrackMediaMPEG
	TrackMediaMuxed
	TrackMediaODSM
	TrackMediaSDSM
	TrackMediaQuartzComposer
	TrackMediaSkin
	TrackMediaSprite
	TrackMediaStreaming
	TrackMediaTimecode
	TrackMediaTimedMetadata
	TrackMediaTween
	TrackMediaMeta
)

// handlerSubtypes maps a hdlr component_subtype fourCC to the media type it
// designates, including "meta", which marks a timed-metadata track.
var handlerSubtypes = map[string]TrackMediaType{
	"vide": TrackMediaVisual,
	"soun": TrackMediaSound,
	"text": TrackMediaText,
	"sbtl": TrackMediaSubtitle,
	"clcp": TrackMediaClosedCaption,
	"hint": TrackMediaHint,
	"m1sm": TrackMediaMPEG,
	"muxx": TrackMediaMuxed,
	"odsm": TrackMediaODSM,
	"sdsm": TrackMediaSDSM,
	"qtz ": TrackMediaQuartzComposer,
	"skin": TrackMediaSkin,
	"sprt": TrackMediaSprite,
	"strm": TrackMediaStreaming,
	"tmcd": TrackMediaTimecode,
	"meta": TrackMediaTimedMetadata,
	"twen": TrackMediaTween,
}
