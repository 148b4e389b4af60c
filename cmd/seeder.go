package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/archival-system/internal"
	"github.com/frahmantamala/archival-system/internal/auth"
	userDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/user"
	"github.com/frahmantamala/archival-system/internal/rbac"
	userPostgres "github.com/frahmantamala/archival-system/internal/user/postgres"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var seedPassword string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed one account per role across departments for development and testing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed(cmd.Context())
	},
}

type seedAccount struct {
	Email      string
	Name       string
	Department rbac.Department
	Role       rbac.Role
}

var seedAccounts = []seedAccount{
	{"root@archive.local", "Root", rbac.DepartmentAdmin, rbac.RoleSuperAdmin},
	{"admin@archive.local", "Archive Admin", rbac.DepartmentAdmin, rbac.RoleAdmin},
	{"head.cse@archive.local", "CSE Head", rbac.DepartmentCSE, rbac.RoleDepartmentHead},
	{"head.ece@archive.local", "ECE Head", rbac.DepartmentECE, rbac.RoleDepartmentHead},
	{"faculty.cse@archive.local", "CSE Faculty", rbac.DepartmentCSE, rbac.RoleFaculty},
	{"staff.cse@archive.local", "CSE Staff", rbac.DepartmentCSE, rbac.RoleStaff},
	{"staff.me@archive.local", "ME Staff", rbac.DepartmentME, rbac.RoleStaff},
	{"staff.research@archive.local", "Research Staff", rbac.DepartmentResearch, rbac.RoleStaff},
}

func runSeed(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	gormDB, sqlDB, err := initDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}
	defer sqlDB.Close()

	catalog, err := rbac.LoadCatalog(cfg.RBAC.CatalogPath)
	if err != nil {
		return err
	}
	guard := rbac.NewGuard(rbac.NewResolver(catalog), nil)
	hasher := auth.NewBcryptHasher(cfg.Security.BCryptCost)
	repo := userPostgres.NewUserRepository(gormDB, cfg.Database.OperationTimeout)

	hash, err := hasher.Hash(seedPassword)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	for _, acc := range seedAccounts {
		if _, err := repo.FindByEmail(ctx, acc.Email); err == nil {
			fmt.Println("user already exists:", acc.Email)
			continue
		} else if !errors.Is(err, internal.ErrUserNotFound) {
			return err
		}

		roles := []rbac.Role{acc.Role}
		perms := guard.Permissions(&rbac.Principal{Roles: roles}).List()
		now := time.Now().UTC()
		record := &userDatamodel.User{
			ID:                      uuid.NewString(),
			Email:                   acc.Email,
			Name:                    acc.Name,
			PasswordHash:            hash,
			Department:              string(acc.Department),
			Roles:                   rbac.RoleStrings(roles),
			Permissions:             rbac.PermissionStrings(perms),
			NotificationPreferences: auth.DefaultNotificationPreferences(),
			IsActive:                true,
			CreatedAt:               now,
			UpdatedAt:               now,
		}
		if err := repo.Insert(ctx, record); err != nil {
			return fmt.Errorf("insert %s: %w", acc.Email, err)
		}
		fmt.Printf("seeded %s (%s, %s)\n", acc.Email, acc.Role, acc.Department)
	}
	return nil
}

func init() {
	seedCmd.Flags().StringVar(&seedPassword, "password", "Archive123", "password for every seeded account")
}
