package adapter

import (
	"fmt"
	"sort"

	"EncounterSync/internal/config"
	"EncounterSync/internal/interfaces"
	"EncounterSync/internal/model"

	"github.com/sirupsen/logrus"
)

// ProviderRegistry 已初始化的视频平台适配器实例
type ProviderRegistry struct {
	cfg       *config.Config
	logger    *logrus.Logger
	providers map[model.ProviderType]interfaces.ClipProvider
}

// NewProviderRegistry 按配置与启用列表，从工厂函数注册表创建适配器实例
func NewProviderRegistry(cfg *config.Config, logger *logrus.Logger) *ProviderRegistry {
	r := &ProviderRegistry{
		cfg:       cfg,
		logger:    logger,
		providers: make(map[model.ProviderType]interfaces.ClipProvider),
	}
	r.initFromFactories()
	return r
}

// NewStaticRegistry 直接使用给定实例（测试或自定义组装）
func NewStaticRegistry(logger *logrus.Logger, providers ...interfaces.ClipProvider) *ProviderRegistry {
	r := &ProviderRegistry{logger: logger, providers: make(map[model.ProviderType]interfaces.ClipProvider)}
	for _, p := range providers {
		r.providers[p.GetType()] = p
	}
	return r
}

func (r *ProviderRegistry) initFromFactories() {
	r.logger.WithField("factory_providers", ListFactories()).Info("已注册的视频平台工厂函数")

	for name, providerCfg := range r.cfg.Providers {
		provider := model.ProviderType(name)
		log := r.logger.WithField("provider", provider)
		if !r.cfg.Sync.ProviderEnabled(name) {
			log.Info("视频平台未启用，跳过")
			continue
		}
		factory, ok := GetFactory(provider)
		if !ok {
			log.Error("未找到对应的工厂函数（init未注册？）")
			continue
		}

		pc := providerCfg
		ins := factory(&pc, &r.cfg.Sync, r.logger)
		if ins == nil {
			log.Error("工厂函数返回nil适配器实例")
			continue
		}
		if ins.GetType() != provider {
			log.WithField("adapter_provider", ins.GetType()).Error("适配器平台类型与配置不匹配")
			continue
		}
		r.providers[provider] = ins
		log.Info("视频平台适配器初始化成功")
	}
	r.logger.WithField("count", len(r.providers)).Info("视频平台适配器初始化完成")
}

// List 已初始化的平台（按名称排序，保证采集顺序稳定）
func (r *ProviderRegistry) List() []model.ProviderType {
	providers := make([]model.ProviderType, 0, len(r.providers))
	for p := range r.providers {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })
	return providers
}

// Get 获取适配器实例
func (r *ProviderRegistry) Get(provider model.ProviderType) (interfaces.ClipProvider, error) {
	p, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("视频平台%s未初始化适配器实例（已初始化：%v）", provider, r.List())
	}
	return p, nil
}

// Count 已初始化实例数量
func (r *ProviderRegistry) Count() int {
	return len(r.providers)
}
