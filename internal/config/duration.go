package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration 支持 "5s"/"250ms" 形式的 YAML 时长字段
type Duration time.Duration

// UnmarshalYAML 解析 time.ParseDuration 兼容的字符串
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML 输出为字符串形式
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std 转换为标准库时长
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
