package businessflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kwameosei/shulegate/app/dto"
	"github.com/kwameosei/shulegate/config"
	"github.com/kwameosei/shulegate/models"
	"github.com/kwameosei/shulegate/repository"
	"github.com/kwameosei/shulegate/utils"
	"github.com/redis/go-redis/v9"
)

// PolicyFlow handles reading and updating tenant notification policies.
// Reads go through a Redis cache; updates write through to Postgres and
// invalidate the cached entry.
type PolicyFlow interface {
	GetPolicy(ctx context.Context, req *dto.GetPolicyRequest) (*dto.PolicyResponse, error)
	UpdatePolicy(ctx context.Context, req *dto.UpdatePolicyRequest, metadata *ClientMetadata) (*dto.PolicyResponse, error)
	IsEnabled(ctx context.Context, tenantID uint, category models.EventCategory) (bool, error)
}

// PolicyFlowImpl implements PolicyFlow
type PolicyFlowImpl struct {
	policyRepo  repository.NotificationPolicyRepository
	tenantRepo  repository.TenantRepository
	cacheConfig *config.CacheConfig
	rc          *redis.Client
}

// NewPolicyFlow creates a new policy flow instance
func NewPolicyFlow(
	policyRepo repository.NotificationPolicyRepository,
	tenantRepo repository.TenantRepository,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
) PolicyFlow {
	return &PolicyFlowImpl{
		policyRepo:  policyRepo,
		tenantRepo:  tenantRepo,
		cacheConfig: cacheConfig,
		rc:          rc,
	}
}

// redisKey builds a namespaced cache key
func redisKey(cfg config.CacheConfig, key string) string {
	return fmt.Sprintf("%s:%s", cfg.KeyPrefix, key)
}

func policyCacheKey(tenantID uint) string {
	return fmt.Sprintf("policy:%d", tenantID)
}

// GetPolicy returns the tenant's policy switches
func (s *PolicyFlowImpl) GetPolicy(ctx context.Context, req *dto.GetPolicyRequest) (*dto.PolicyResponse, error) {
	policy, err := s.loadPolicy(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	return toPolicyResponse(policy), nil
}

// UpdatePolicy applies the requested switch changes and invalidates the cache.
// Unknown categories reject the whole request; nothing is partially applied.
func (s *PolicyFlowImpl) UpdatePolicy(ctx context.Context, req *dto.UpdatePolicyRequest, metadata *ClientMetadata) (*dto.PolicyResponse, error) {
	if len(req.Categories) == 0 {
		return nil, NewBusinessError("EMPTY_POLICY_UPDATE", "At least one category must be provided", ErrEmptyPolicyUpdate)
	}

	for name := range req.Categories {
		if !models.EventCategory(name).Valid() {
			return nil, NewBusinessErrorf("UNKNOWN_CATEGORY", "Unknown event category: %s", ErrUnknownCategory, name)
		}
	}

	policy, err := s.loadPolicy(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}

	for name, enabled := range req.Categories {
		policy.Set(models.EventCategory(name), enabled)
	}
	policy.UpdatedAt = utils.UTCNow()

	if err := s.policyRepo.Update(ctx, policy); err != nil {
		return nil, NewBusinessError("POLICY_UPDATE_FAILED", "Failed to update notification policy", err)
	}

	s.invalidate(ctx, req.TenantID)

	return toPolicyResponse(policy), nil
}

// IsEnabled answers the gatekeeper's policy question for one category.
// Critical categories never reach this path.
func (s *PolicyFlowImpl) IsEnabled(ctx context.Context, tenantID uint, category models.EventCategory) (bool, error) {
	policy, err := s.loadPolicy(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return policy.Enabled(category), nil
}

// loadPolicy reads the policy through the cache, falling back to Postgres.
// A tenant without a stored row gets the default policy persisted on first
// access.
func (s *PolicyFlowImpl) loadPolicy(ctx context.Context, tenantID uint) (*models.NotificationPolicy, error) {
	cacheKey := redisKey(*s.cacheConfig, policyCacheKey(tenantID))

	if s.rc != nil {
		if bs, err := s.rc.Get(ctx, cacheKey).Bytes(); err == nil && len(bs) > 0 {
			var cached models.NotificationPolicy
			if err := json.Unmarshal(bs, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	policy, err := s.policyRepo.ByTenantID(ctx, tenantID)
	if err != nil {
		return nil, NewBusinessError("POLICY_LOOKUP_FAILED", "Failed to look up notification policy", err)
	}
	if policy == nil {
		policy = models.DefaultPolicy(tenantID)
		if err := s.policyRepo.Save(ctx, policy); err != nil {
			return nil, NewBusinessError("POLICY_CREATE_FAILED", "Failed to create default policy", err)
		}
	}

	if s.rc != nil {
		if bs, err := json.Marshal(policy); err == nil {
			_ = s.rc.Set(ctx, cacheKey, bs, s.cacheConfig.PolicyTTL).Err()
		}
	}

	return policy, nil
}

// invalidate drops the cached policy; a failed delete only means one stale
// read before the TTL expires
func (s *PolicyFlowImpl) invalidate(ctx context.Context, tenantID uint) {
	if s.rc == nil {
		return
	}
	cacheKey := redisKey(*s.cacheConfig, policyCacheKey(tenantID))
	_ = s.rc.Del(ctx, cacheKey).Err()
}

func toPolicyResponse(policy *models.NotificationPolicy) *dto.PolicyResponse {
	categories := make(map[string]bool, len(models.AllCategories))
	for c, enabled := range policy.AsMap() {
		categories[string(c)] = enabled
	}
	return &dto.PolicyResponse{
		Categories: categories,
		UpdatedAt:  policy.UpdatedAt,
	}
}
