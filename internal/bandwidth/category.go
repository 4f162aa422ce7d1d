package bandwidth

import "strings"

// Category 报文带宽类别
type Category int

const (
	CategoryCritical Category = iota
	CategoryGameplay
	CategoryPosition
	CategoryChat
	CategoryTelemetry
	CategoryMisc
)

var categoryNames = map[Category]string{
	CategoryCritical:  "critical",
	CategoryGameplay:  "gameplay",
	CategoryPosition:  "position",
	CategoryChat:      "chat",
	CategoryTelemetry: "telemetry",
	CategoryMisc:      "misc",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "misc"
}

// ParseCategory 解析类别名，未知名称回落到 misc
func ParseCategory(name string) (Category, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for cat, n := range categoryNames {
		if n == lower {
			return cat, true
		}
	}
	return CategoryMisc, false
}

// AllCategories 返回全部类别（确定性顺序）
func AllCategories() []Category {
	return []Category{
		CategoryCritical, CategoryGameplay, CategoryPosition,
		CategoryChat, CategoryTelemetry, CategoryMisc,
	}
}
