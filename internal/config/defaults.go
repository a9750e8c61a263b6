package config

// Page sources
const (
	SourceBrowser = "browser"
	SourceHTTP    = "http"
	SourceFile    = "file"
)

// Output formats
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Record field names, as used in the extraction table
const (
	FieldBackgroundImage = "backgroundImage"
	FieldApplicationType = "applicationType"
	FieldTitle           = "title"
	FieldAuthor          = "author"
	FieldDescription     = "description"
	FieldPrice           = "price"
	FieldCopyCount       = "copyCount"
)

const (
	// DefaultURLPattern identifies the supported listing page
	DefaultURLPattern = "coze.cn/template"
	// DefaultOutputFile is the name of the exported file
	DefaultOutputFile = "coze_data.csv"
	// DefaultCardSelector matches one template card
	DefaultCardSelector = "article"
	// AgentMarker labels the tag that carries the application type
	AgentMarker = "智能体"
)

// DefaultHeaders are the CSV column labels, in row order
var DefaultHeaders = []string{"标题", "作者", "描述", "应用类型", "价格", "复制次数", "背景图"}

// DefaultFields returns the matcher table for the coze.cn template listing
func DefaultFields() map[string]FieldMatcher {
	return map[string]FieldMatcher{
		FieldBackgroundImage: {Selector: "div > div > img", Attr: "src"},
		FieldApplicationType: {Selector: "div.semi-tag-content", Contains: AgentMarker},
		FieldTitle:           {Selector: ".semi-typography-ellipsis span"},
		// the author name sits right after the 14px avatar
		FieldAuthor:      {Selector: `div.semi-image[style*="width: 14px"]`, Next: true, Within: "span > span"},
		FieldDescription: {Selector: "span.semi-typography-ellipsis-multiple-line span"},
		FieldPrice:       {Selector: "div.font-medium"},
		FieldCopyCount:   {Selector: "div.flex.items-center span", Type: "int"},
	}
}

// DefaultUserAgents provides a list of common user agents
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}
