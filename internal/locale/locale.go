// Package locale resolves the user-facing message keys used by lapx into localized text.
//
// Messages live in a golang.org/x/text catalog with English and Simplified Chinese
// entries. Unknown keys are returned unchanged so a missing translation never hides an
// error.
package locale

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	ProjectNoName           = "Project_NoName"
	ProjectNoDesigner       = "Project_NoDesigner"
	ProjectReadChartFailed  = "Project_ReadChartFailed"
	ProjectReadImageFailed  = "Project_ReadImageFailed"
	ProjectReadMusicFailed  = "Project_ReadMusicFailed"
	ProjectNoBGA            = "Project_NoBGA"
	ProjectInvalidProject   = "Project_InvalidProject"
	ProjectLoaded           = "Project_Loaded"
	ProjectEnterEditor      = "Project_EnterEditorFailed"
	CloudReady              = "Cloud_Ready"
	CloudUnsupportedUserID  = "Cloud_UnsupportedUserId"
	CloudNetworkUnreachable = "Cloud_NetworkUnreachable"
	CloudNoProjectLoaded    = "Cloud_NoProjectLoaded"
	CloudNeverUploaded      = "Cloud_NeverUploaded"
)

var messages = map[language.Tag]map[string]string{
	language.English: {
		ProjectNoName:           "Please enter a chart name.",
		ProjectNoDesigner:       "Please enter a designer name.",
		ProjectReadChartFailed:  "Failed to read the chart file.",
		ProjectReadImageFailed:  "Failed to read a background image.",
		ProjectReadMusicFailed:  "Failed to read the music file.",
		ProjectNoBGA:            "Please add at least one background image.",
		ProjectInvalidProject:   "The project is missing required information.",
		ProjectLoaded:           "Project loaded.",
		ProjectEnterEditor:      "Failed to open the editor.",
		CloudReady:              "Ready",
		CloudUnsupportedUserID:  "This device is not supported by the cloud service.",
		CloudNetworkUnreachable: "The cloud service cannot be reached.",
		CloudNoProjectLoaded:    "No project is loaded.",
		CloudNeverUploaded:      "Never uploaded",
	},
	language.SimplifiedChinese: {
		ProjectNoName:           "请输入谱面名称。",
		ProjectNoDesigner:       "请输入谱师名称。",
		ProjectReadChartFailed:  "读取谱面文件失败。",
		ProjectReadImageFailed:  "读取背景图片失败。",
		ProjectReadMusicFailed:  "读取音乐文件失败。",
		ProjectNoBGA:            "请至少添加一张背景图片。",
		ProjectInvalidProject:   "项目缺少必要信息。",
		ProjectLoaded:           "项目已加载。",
		ProjectEnterEditor:      "无法打开编辑器。",
		CloudReady:              "就绪",
		CloudUnsupportedUserID:  "此设备不受云服务支持。",
		CloudNetworkUnreachable: "无法连接到云服务。",
		CloudNoProjectLoaded:    "尚未加载项目。",
		CloudNeverUploaded:      "从未上传",
	},
}

// Localizer looks up user-facing text by key.
type Localizer interface {
	Localize(key string) string
}

// Catalog is a [Localizer] bound to one language.
type Catalog struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a catalog for lang (a BCP 47 tag such as "en" or "zh-Hans").
//
// Unparseable or unsupported languages fall back to English.
func New(lang string) *Catalog {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, entries := range messages {
		for key, msg := range entries {
			_ = builder.SetString(tag, key, msg)
		}
	}

	tag := Match(lang)
	return &Catalog{tag: tag, printer: message.NewPrinter(tag, message.Catalog(builder))}
}

// Match picks the supported language closest to lang.
func Match(lang string) language.Tag {
	supported := []language.Tag{language.English, language.SimplifiedChinese}
	requested, err := language.Parse(lang)
	if err != nil {
		return language.English
	}
	_, idx, conf := language.NewMatcher(supported).Match(requested)
	if conf == language.No {
		return language.English
	}
	return supported[idx]
}

// Language returns the tag messages are printed in.
func (c *Catalog) Language() language.Tag { return c.tag }

// Localize returns the text for key, or key itself when it has no entry.
func (c *Catalog) Localize(key string) string {
	return c.printer.Sprintf(key)
}
