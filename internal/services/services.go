package services

import (
	"log"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/caisdata/cais/internal/config"
	"github.com/caisdata/cais/internal/db"
	"github.com/caisdata/cais/internal/jobs"
	"github.com/caisdata/cais/internal/warehouse"

	"github.com/caisdata/cais/internal/services/analysis"
	"github.com/caisdata/cais/internal/services/audit"
	"github.com/caisdata/cais/internal/services/catalog"
	"github.com/caisdata/cais/internal/services/indicator"
	"github.com/caisdata/cais/internal/services/notification"
	"github.com/caisdata/cais/internal/services/permission"
	"github.com/caisdata/cais/internal/services/querycache"
	"github.com/caisdata/cais/internal/services/quota"
	"github.com/caisdata/cais/internal/services/tenant"
	"github.com/caisdata/cais/internal/services/user"
)

// quotaWindow is the refill window for tenant query quotas.
const quotaWindow = 24 * time.Hour

type Services struct {
	Tenant       *tenant.TenantService
	User         *user.UserService
	Permission   *permission.PermissionService
	Catalog      *catalog.Catalog
	Indicator    *indicator.IndicatorService
	Analysis     *analysis.AnalysisService
	AnalysisRepo *analysis.AnalysisRepo
	Notification *notification.NotificationService
	Audit        *audit.AuditService
	Quota        *quota.Gate
	Warehouse    warehouse.Querier
	Broker       *jobs.RedisBroker

	Redis *redis.Client
}

func NewServices(conf *config.Config) *Services {
	dbconn := db.NewConn(conf)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     conf.REDIS_HOST + ":" + conf.REDIS_PORT,
		Username: conf.REDIS_USERNAME,
		Password: conf.REDIS_PASSWORD,
	})

	chConn, err := warehouse.NewConn(&warehouse.Config{
		Host:     conf.CLICKHOUSE_HOST,
		Port:     conf.CLICKHOUSE_PORT,
		Database: conf.CLICKHOUSE_DATABASE,
		Username: conf.CLICKHOUSE_USERNAME,
		Password: conf.CLICKHOUSE_PASSWORD,
		UseTLS:   conf.CLICKHOUSE_USE_TLS,
	})
	if err != nil {
		log.Fatalf("unable to connect to the indicator warehouse: %v", err)
	}
	wh := warehouse.New(chConn)
	slog.Info("Connected to ClickHouse warehouse")

	cat := catalog.New()
	cache := querycache.New(redisClient, conf.QUERY_CACHE_TTL)
	broker := jobs.NewRedisBroker(redisClient, jobs.AnalysisQueue)

	tenantSvc := tenant.NewTenantService(tenant.NewTenantRepo(dbconn))
	permissionSvc := permission.NewPermissionService(permission.NewPermissionRepo(dbconn))
	analysisRepo := analysis.NewAnalysisRepo(dbconn)

	svc := &Services{
		Tenant:       tenantSvc,
		User:         user.NewUserService(user.NewUserRepo(dbconn)),
		Permission:   permissionSvc,
		Catalog:      cat,
		Indicator:    indicator.NewIndicatorService(cat, cache, wh),
		Analysis:     analysis.NewAnalysisService(analysisRepo, permissionSvc, tenantSvc, broker),
		AnalysisRepo: analysisRepo,
		Notification: notification.NewNotificationService(notification.NewNotificationRepo(dbconn), notification.NewLogEmailProvider()),
		Audit:        audit.NewAuditService(audit.NewAuditRepo(dbconn), conf.AUDIT_RETENTION),
		Quota:        quota.NewGate(quota.NewRedisStorage(redisClient, "cais:quota:"), quotaWindow),
		Warehouse:    wh,
		Broker:       broker,
		Redis:        redisClient,
	}

	return svc
}
