package transport

import (
	"sort"
	"strings"

	"gamenet-core/internal/bandwidth"
	"gamenet-core/internal/config"
	"gamenet-core/internal/packet"
)

// Priority 出站报文优先级
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	default:
		return "low"
	}
}

// ParsePriority 解析优先级名
func ParsePriority(name string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "critical":
		return PriorityCritical, true
	case "high":
		return PriorityHigh, true
	case "normal":
		return PriorityNormal, true
	case "low":
		return PriorityLow, true
	}
	return PriorityNormal, false
}

// Rule 单条分类规则：报文名前缀 → 类别/优先级/限流豁免
type Rule struct {
	Prefix         string
	Category       bandwidth.Category
	Priority       Priority
	ThrottleExempt bool
}

// MessageTable 报文分类规则表，最长前缀匹配
type MessageTable struct {
	rules []Rule // 按前缀长度降序，保证最长匹配优先
}

// defaultRules 内置规则
// 认证/心跳/断开 = Critical；聊天类 = High；位置类 = Normal；其余走默认
var defaultRules = []Rule{
	{Prefix: "Heartbeat", Category: bandwidth.CategoryCritical, Priority: PriorityCritical, ThrottleExempt: true},
	{Prefix: "Disconnect", Category: bandwidth.CategoryCritical, Priority: PriorityCritical, ThrottleExempt: true},
	{Prefix: "Auth", Category: bandwidth.CategoryCritical, Priority: PriorityCritical, ThrottleExempt: true},
	{Prefix: "Registration", Category: bandwidth.CategoryCritical, Priority: PriorityCritical, ThrottleExempt: true},
	{Prefix: "Chat", Category: bandwidth.CategoryChat, Priority: PriorityHigh},
	{Prefix: "System", Category: bandwidth.CategoryChat, Priority: PriorityHigh},
	{Prefix: "Whisper", Category: bandwidth.CategoryChat, Priority: PriorityHigh},
	{Prefix: "Position", Category: bandwidth.CategoryPosition, Priority: PriorityNormal},
	{Prefix: "DeltaPosition", Category: bandwidth.CategoryPosition, Priority: PriorityNormal},
	{Prefix: "Teleport", Category: bandwidth.CategoryGameplay, Priority: PriorityNormal},
	{Prefix: "Command", Category: bandwidth.CategoryGameplay, Priority: PriorityNormal},
	{Prefix: "WorldState", Category: bandwidth.CategoryGameplay, Priority: PriorityNormal},
}

// defaultRule 无匹配时的回落
var defaultRule = Rule{Category: bandwidth.CategoryMisc, Priority: PriorityNormal}

// NewMessageTable 根据配置规则构建规则表，配置覆盖同前缀的内置规则
func NewMessageTable(configRules []config.MessageRule) *MessageTable {
	merged := make(map[string]Rule, len(defaultRules)+len(configRules))
	for _, r := range defaultRules {
		merged[r.Prefix] = r
	}
	for _, cr := range configRules {
		cat, _ := bandwidth.ParseCategory(cr.Category)
		prio, _ := ParsePriority(cr.Priority)
		merged[cr.Prefix] = Rule{
			Prefix:         cr.Prefix,
			Category:       cat,
			Priority:       prio,
			ThrottleExempt: cr.ThrottleExempt,
		}
	}

	rules := make([]Rule, 0, len(merged))
	for _, r := range merged {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].Prefix) != len(rules[j].Prefix) {
			return len(rules[i].Prefix) > len(rules[j].Prefix)
		}
		return rules[i].Prefix < rules[j].Prefix
	})
	return &MessageTable{rules: rules}
}

// Classify 按最长匹配前缀返回报文名对应的规则，无匹配回落到 Misc/Normal
func (t *MessageTable) Classify(name string) Rule {
	for _, r := range t.rules {
		if strings.HasPrefix(name, r.Prefix) {
			return r
		}
	}
	return defaultRule
}

// ClassifyMessage 按报文类型分类
func (t *MessageTable) ClassifyMessage(msg packet.Message) Rule {
	return t.Classify(msg.Type().String())
}
