package storage

import (
	"context"
	"fmt"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jmazzahacks/api-gatekeeper/common"
	"github.com/jmazzahacks/api-gatekeeper/model"
	"github.com/jmazzahacks/api-gatekeeper/repository"
)

// GormRepository implements repository.Repository over a gorm.DB. It is the
// only piece of the service that knows routes, clients, and permissions are
// rows in a SQL database (spec.md §6.2, §9: persistence is the adapter's
// concern, never the core's).
type GormRepository struct {
	goutils.Component
	db *gorm.DB
}

// NewGormRepository opens the schema against db, running migrations, and
// returns a Repository ready for use. db is borrowed, not owned.
func NewGormRepository(db *gorm.DB) (*GormRepository, error) {
	if err := db.AutoMigrate(&dbRoute{}, &dbClient{}, &dbPermission{}); err != nil {
		return nil, fmt.Errorf("migrate storage schema: %w", err)
	}
	return &GormRepository{
		Component: goutils.Component{
			LogTags: log.Fields{"module": "storage", "component": "gorm-repository"},
		},
		db: db,
	}, nil
}

var _ repository.Repository = (*GormRepository)(nil)

// Ping confirms the underlying database connection is reachable, for the
// authorization server's readiness check.
func (r *GormRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CandidateRoutes returns every configured route. Routes are expected to
// number in the hundreds to low thousands for a forward-auth deployment, so a
// full table scan is cheap relative to the per-request network hop that
// triggered it; routematch.Match performs the authoritative narrowing.
func (r *GormRepository) CandidateRoutes(ctx context.Context, domain, path string) ([]model.Route, error) {
	logTags := r.GetLogTagsForContext(ctx)
	var rows []dbRoute
	if tmp := r.db.WithContext(ctx).Find(&rows); tmp.Error != nil {
		log.WithError(tmp.Error).WithFields(logTags).Error("storage: failed to query routes")
		return nil, tmp.Error
	}
	routes := make([]model.Route, 0, len(rows))
	for _, row := range rows {
		route, err := row.toModel()
		if err != nil {
			log.WithError(err).WithFields(logTags).Error("storage: failed to decode route")
			return nil, err
		}
		routes = append(routes, route)
	}
	return routes, nil
}

// ClientByAPIKey returns the client owning key via the unique index on api_key.
func (r *GormRepository) ClientByAPIKey(ctx context.Context, key string) (*model.Client, error) {
	return r.clientWhere(ctx, "api_key = ?", key)
}

// ClientBySharedSecret returns the client owning secret via the unique index
// on shared_secret.
func (r *GormRepository) ClientBySharedSecret(ctx context.Context, secret string) (*model.Client, error) {
	return r.clientWhere(ctx, "shared_secret = ?", secret)
}

// ClientByID returns the client by its primary key.
func (r *GormRepository) ClientByID(ctx context.Context, id string) (*model.Client, error) {
	return r.clientWhere(ctx, "id = ?", id)
}

func (r *GormRepository) clientWhere(ctx context.Context, query string, arg string) (*model.Client, error) {
	logTags := r.GetLogTagsForContext(ctx)
	var row dbClient
	tmp := r.db.WithContext(ctx).Where(query, arg).First(&row)
	if tmp.Error != nil {
		if tmp.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		log.WithError(tmp.Error).WithFields(logTags).Error("storage: failed to query client")
		return nil, tmp.Error
	}
	client := row.toModel()
	return &client, nil
}

// CandidateSecrets returns every client's shared secret, for the scan path
// used when the caller supplies no client-id hint (spec.md §4.3, §9).
func (r *GormRepository) CandidateSecrets(ctx context.Context) ([]repository.SecretCandidate, error) {
	logTags := r.GetLogTagsForContext(ctx)
	var rows []dbClient
	tmp := r.db.WithContext(ctx).Where("shared_secret IS NOT NULL AND shared_secret != ''").Find(&rows)
	if tmp.Error != nil {
		log.WithError(tmp.Error).WithFields(logTags).Error("storage: failed to query client secrets")
		return nil, tmp.Error
	}
	candidates := make([]repository.SecretCandidate, 0, len(rows))
	for _, row := range rows {
		if row.SharedSecret == nil || *row.SharedSecret == "" {
			continue
		}
		candidates = append(candidates, repository.SecretCandidate{ClientID: row.ID, Secret: *row.SharedSecret})
	}
	return candidates, nil
}

// Permission returns the grant row for (clientID, routeID), or (nil, nil) if
// none exists.
func (r *GormRepository) Permission(ctx context.Context, clientID, routeID string) (*model.Permission, error) {
	logTags := r.GetLogTagsForContext(ctx)
	var row dbPermission
	tmp := r.db.WithContext(ctx).Where(
		"client_id = ? AND route_id = ?", clientID, routeID,
	).First(&row)
	if tmp.Error != nil {
		if tmp.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		log.WithError(tmp.Error).WithFields(logTags).Error("storage: failed to query permission")
		return nil, tmp.Error
	}
	perm, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

// Seed loads routes, clients, and permissions from cfg into the store,
// upserting by primary key. main.go calls it at every startup to populate
// or refresh the database; provisioning at runtime is out of scope
// (spec.md §1 Non-goals).
func Seed(ctx context.Context, db *gorm.DB, cfg common.SeedConfig) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, routeCfg := range cfg.Routes {
			methods := make(map[string]model.MethodPolicy, len(routeCfg.Methods))
			for _, m := range routeCfg.Methods {
				methods[m.Method] = model.MethodPolicy{
					AuthRequired: m.AuthRequired,
					AuthType:     model.AuthType(m.AuthType),
				}
			}
			row, err := dbRouteFromModel(model.Route{
				ID:          routeCfg.ID,
				Pattern:     routeCfg.Pattern,
				Domain:      routeCfg.Domain,
				ServiceName: routeCfg.ServiceName,
				Methods:     methods,
			})
			if err != nil {
				return err
			}
			if tmp := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row); tmp.Error != nil {
				return fmt.Errorf("seed route %s: %w", routeCfg.ID, tmp.Error)
			}
		}

		for _, clientCfg := range cfg.Clients {
			client := model.Client{ID: clientCfg.ID, Name: clientCfg.Name, Status: model.ClientStatus(clientCfg.Status)}
			if clientCfg.APIKey != "" {
				client.APIKey = &clientCfg.APIKey
			}
			if clientCfg.SharedSecret != "" {
				client.SharedSecret = &clientCfg.SharedSecret
			}
			row := dbClientFromModel(client)
			if tmp := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row); tmp.Error != nil {
				return fmt.Errorf("seed client %s: %w", clientCfg.ID, tmp.Error)
			}
		}

		for _, permCfg := range cfg.Permissions {
			allowed := make(map[string]bool, len(permCfg.AllowedMethods))
			for _, m := range permCfg.AllowedMethods {
				allowed[m] = true
			}
			row, err := dbPermissionFromModel(model.Permission{
				ClientID: permCfg.ClientID, RouteID: permCfg.RouteID, AllowedMethods: allowed,
			})
			if err != nil {
				return err
			}
			if tmp := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row); tmp.Error != nil {
				return fmt.Errorf("seed permission %s/%s: %w", permCfg.ClientID, permCfg.RouteID, tmp.Error)
			}
		}

		return nil
	})
}
