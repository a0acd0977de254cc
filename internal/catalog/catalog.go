package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// UnknownDiscovery 发现池耗尽时使用的占位名称
const UnknownDiscovery = "Unknown Species"

// Satellite 卫星（仅用于展示，没有独立玩法）
type Satellite struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// Body 可航行的星球
type Body struct {
	ID             string      `yaml:"id" json:"id"`
	Name           string      `yaml:"name" json:"name"`
	Description    string      `yaml:"description" json:"description"`
	TravelCost     int64       `yaml:"travel_cost" json:"travel_cost"`
	RefuelCost     int64       `yaml:"refuel_cost" json:"refuel_cost"`
	MaxDiscoveries int         `yaml:"max_discoveries" json:"max_discoveries"`
	Environment    string      `yaml:"environment" json:"environment"`
	DiscoveryPool  []string    `yaml:"discovery_pool" json:"discovery_pool"`
	Satellites     []Satellite `yaml:"satellites" json:"satellites"`
}

// DiscoveryAt 返回第 n 次探索（从0开始）得到的发现名称
func (b Body) DiscoveryAt(n int) string {
	if n >= 0 && n < len(b.DiscoveryPool) {
		return b.DiscoveryPool[n]
	}
	return UnknownDiscovery
}

// file YAML 目录文件结构
type file struct {
	Home   string `yaml:"home"`
	Bodies []Body `yaml:"bodies"`
}

// Catalog 不可变的星球目录
type Catalog struct {
	home   string
	order  []string
	bodies map[string]Body
}

// New 校验并构建目录
func New(home string, bodies []Body) (*Catalog, error) {
	c := &Catalog{
		home:   home,
		order:  make([]string, 0, len(bodies)),
		bodies: make(map[string]Body, len(bodies)),
	}

	for _, b := range bodies {
		if b.ID == "" {
			return nil, fmt.Errorf("星球缺少id: %q", b.Name)
		}
		if _, dup := c.bodies[b.ID]; dup {
			return nil, fmt.Errorf("星球id重复: %s", b.ID)
		}
		if b.TravelCost < 0 || b.RefuelCost < 0 {
			return nil, fmt.Errorf("星球 %s 的费用不能为负数", b.ID)
		}
		if b.MaxDiscoveries <= 0 {
			return nil, fmt.Errorf("星球 %s 的 max_discoveries 必须大于0", b.ID)
		}
		c.order = append(c.order, b.ID)
		c.bodies[b.ID] = cloneBody(b)
	}

	if _, ok := c.bodies[home]; !ok {
		return nil, fmt.Errorf("起始星球不存在: %q", home)
	}
	return c, nil
}

// Load 从YAML文件加载目录
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取星球目录失败: %w", err)
	}
	return Parse(data)
}

// Parse 解析YAML格式的目录
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("解析星球目录失败: %w", err)
	}
	return New(f.Home, f.Bodies)
}

// Home 起始星球ID
func (c *Catalog) Home() string {
	return c.home
}

// Get 按ID查找星球
func (c *Catalog) Get(id string) (Body, bool) {
	b, ok := c.bodies[id]
	if !ok {
		return Body{}, false
	}
	return cloneBody(b), true
}

// Has 星球是否存在
func (c *Catalog) Has(id string) bool {
	_, ok := c.bodies[id]
	return ok
}

// Bodies 按目录顺序返回所有星球
func (c *Catalog) Bodies() []Body {
	out := make([]Body, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, cloneBody(c.bodies[id]))
	}
	return out
}

// ShortPools 返回发现池长度小于 max_discoveries 的星球ID
func (c *Catalog) ShortPools() []string {
	var ids []string
	for _, id := range c.order {
		b := c.bodies[id]
		if len(b.DiscoveryPool) < b.MaxDiscoveries {
			ids = append(ids, id)
		}
	}
	return ids
}

func cloneBody(b Body) Body {
	b.DiscoveryPool = append([]string(nil), b.DiscoveryPool...)
	b.Satellites = append([]Satellite(nil), b.Satellites...)
	return b
}
