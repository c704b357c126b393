// internal/adapter/adapter.go
package adapter

import (
	"fmt"
	"sort"

	"EncounterSync/internal/interfaces"
	"EncounterSync/internal/model"

	"github.com/sirupsen/logrus"
)

// ========== 全局工厂函数注册表（依赖interfaces包） ==========
var factoryRegistry = make(map[model.ProviderType]interfaces.Factory)

// Register 供适配器init函数调用，注册工厂函数
func Register(provider model.ProviderType, factory interfaces.Factory) {
	if factory == nil {
		panic(fmt.Sprintf("平台%s的工厂函数不能为nil", provider))
	}
	if _, exists := factoryRegistry[provider]; exists {
		logrus.Warnf("平台%s的适配器已注册，将覆盖原有实现", provider)
	}
	factoryRegistry[provider] = factory
}

// GetFactory 获取指定平台的工厂函数
func GetFactory(provider model.ProviderType) (interfaces.Factory, bool) {
	factory, ok := factoryRegistry[provider]
	return factory, ok
}

// ListFactories 列出所有已注册的工厂函数平台（按名称排序）
func ListFactories() []model.ProviderType {
	providers := make([]model.ProviderType, 0, len(factoryRegistry))
	for p := range factoryRegistry {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })
	return providers
}
