package pe

import (
	"cmp"
	"slices"
	"strconv"
	"unicode/utf16"
)

// ResourceKey names a resource type, id or language: either a string or a
// numeric id.
type ResourceKey struct {
	name   string
	id     uint32
	isName bool
}

func NameKey(name string) ResourceKey { return ResourceKey{name: name, isName: true} }

func IDKey(id uint32) ResourceKey { return ResourceKey{id: id} }

func (k ResourceKey) IsName() bool { return k.isName }
func (k ResourceKey) Name() string { return k.name }
func (k ResourceKey) ID() uint32   { return k.id }

func (k ResourceKey) String() string {
	if k.isName {
		return k.name
	}
	return strconv.FormatUint(uint64(k.id), 10)
}

// compareResourceKeys orders names before ids. Names compare by UTF-16 code
// units, ids numerically.
func compareResourceKeys(a, b ResourceKey) int {
	switch {
	case a.isName && !b.isName:
		return -1
	case !a.isName && b.isName:
		return 1
	case a.isName:
		return slices.Compare(utf16.Encode([]rune(a.name)), utf16.Encode([]rune(b.name)))
	default:
		return cmp.Compare(a.id, b.id)
	}
}

type ResourceType uint32

const (
	RTCursor       ResourceType = 1
	RTBitmap       ResourceType = 2
	RTIcon         ResourceType = 3
	RTMenu         ResourceType = 4
	RTDialog       ResourceType = 5
	RTString       ResourceType = 6
	RTFontDir      ResourceType = 7
	RTFont         ResourceType = 8
	RTAccelerator  ResourceType = 9
	RTRCData       ResourceType = 10
	RTMessageTable ResourceType = 11
	RTGroupCursor  ResourceType = 12
	RTGroupIcon    ResourceType = 14
	RTVersion      ResourceType = 16
	RTDlgInclude   ResourceType = 17
	RTPlugPlay     ResourceType = 19
	RTVxD          ResourceType = 20
	RTAniCursor    ResourceType = 21
	RTAniIcon      ResourceType = 22
	RTHtml         ResourceType = 23
	RTManifest     ResourceType = 24
)

var resourceTypeNames = map[ResourceType]string{
	RTCursor:       "RT_CURSOR",
	RTBitmap:       "RT_BITMAP",
	RTIcon:         "RT_ICON",
	RTMenu:         "RT_MENU",
	RTDialog:       "RT_DIALOG",
	RTString:       "RT_STRING",
	RTFontDir:      "RT_FONTDIR",
	RTFont:         "RT_FONT",
	RTAccelerator:  "RT_ACCELERATOR",
	RTRCData:       "RT_RCDATA",
	RTMessageTable: "RT_MESSAGETABLE",
	RTGroupCursor:  "RT_GROUP_CURSOR",
	RTGroupIcon:    "RT_GROUP_ICON",
	RTVersion:      "RT_VERSION",
	RTDlgInclude:   "RT_DLGINCLUDE",
	RTPlugPlay:     "RT_PLUGPLAY",
	RTVxD:          "RT_VXD",
	RTAniCursor:    "RT_ANICURSOR",
	RTAniIcon:      "RT_ANIICON",
	RTHtml:         "RT_HTML",
	RTManifest:     "RT_MANIFEST",
}

func (rt ResourceType) String() string {
	if name, ok := resourceTypeNames[rt]; ok {
		return name
	}
	return "?"
}

// Key returns the numeric resource key for rt.
func (rt ResourceType) Key() ResourceKey { return IDKey(uint32(rt)) }
