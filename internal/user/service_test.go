package user_test

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	appErrors "github.com/frahmantamala/account-admin/internal"
	"github.com/frahmantamala/account-admin/internal/auth"
	authPostgres "github.com/frahmantamala/account-admin/internal/auth/postgres"
	"github.com/frahmantamala/account-admin/internal/core/database"
	roleDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/role"
	userDatamodel "github.com/frahmantamala/account-admin/internal/core/datamodel/user"
	"github.com/frahmantamala/account-admin/internal/core/events"
	deptPostgres "github.com/frahmantamala/account-admin/internal/dept/postgres"
	"github.com/frahmantamala/account-admin/internal/post"
	postPostgres "github.com/frahmantamala/account-admin/internal/post/postgres"
	"github.com/frahmantamala/account-admin/internal/role"
	rolePostgres "github.com/frahmantamala/account-admin/internal/role/postgres"
	"github.com/frahmantamala/account-admin/internal/testutil"
	"github.com/frahmantamala/account-admin/internal/user"
	userPostgres "github.com/frahmantamala/account-admin/internal/user/postgres"
)

// Fixture accounts on top of testutil.SeedReference.
const (
	idAdmin      int64 = 1  // superuser, HQ
	idClerk      int64 = 2  // department only, Engineering
	idManager    int64 = 3  // department and below, Engineering
	idMember     int64 = 4  // self only, Backend
	idAuditor    int64 = 5  // custom scope on Sales, HQ
	idSalesRep   int64 = 10 // Sales
	idBackendDev int64 = 11 // Backend
	idEngDev     int64 = 12 // Engineering
	idRoleAdmin  int64 = 13 // holds the admin role but is not the superuser
)

var userPermissions = []string{
	"system:user:list",
	"system:user:query",
	"system:user:add",
	"system:user:edit",
	"system:user:remove",
	"system:user:resetPwd",
}

var _ = Describe("User Service", func() {
	var (
		ctx       context.Context
		db        *gorm.DB
		svc       *user.Service
		authSvc   *auth.Service
		roles     *role.Service
		posts     *post.Service
		publisher *recordingPublisher
	)

	principal := func(id int64) *auth.Principal {
		p, err := authSvc.Principal(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	loadUser := func(id int64) *userDatamodel.SysUser {
		var m userDatamodel.SysUser
		Expect(db.Unscoped().First(&m, id).Error).To(Succeed())
		return &m
	}

	roleIDsOf := func(id int64) []int64 {
		ids, err := roles.RoleIDsByUser(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		return ids
	}

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		db, err = testutil.NewSQLiteDB()
		Expect(err).NotTo(HaveOccurred())
		Expect(testutil.SeedReference(db)).To(Succeed())

		fixtures := []struct {
			id     int64
			dept   int64
			name   string
			roleID []int64
		}{
			{idAdmin, testutil.DeptHQ, "admin", []int64{testutil.RoleAdmin}},
			{idClerk, testutil.DeptEngineering, "eng_clerk", []int64{testutil.RoleDeptOnly}},
			{idManager, testutil.DeptEngineering, "eng_manager", []int64{testutil.RoleDeptAndDown}},
			{idMember, testutil.DeptBackend, "member", []int64{testutil.RoleSelfOnly}},
			{idAuditor, testutil.DeptHQ, "auditor", []int64{testutil.RoleCustom}},
			{idSalesRep, testutil.DeptSales, "sales_rep", nil},
			{idBackendDev, testutil.DeptBackend, "backend_dev", nil},
			{idEngDev, testutil.DeptEngineering, "eng_dev", nil},
			{idRoleAdmin, testutil.DeptHQ, "role_admin", []int64{testutil.RoleAdmin}},
		}
		for _, f := range fixtures {
			_, err := testutil.CreateUser(db, f.id, f.dept, f.name, f.roleID...)
			Expect(err).NotTo(HaveOccurred())
		}
		for _, roleID := range []int64{testutil.RoleDeptOnly, testutil.RoleDeptAndDown, testutil.RoleSelfOnly, testutil.RoleCustom} {
			for _, perm := range userPermissions {
				Expect(db.Create(&roleDatamodel.SysRolePermission{RoleID: roleID, Permission: perm}).Error).To(Succeed())
			}
		}

		sdb, err := database.SQLX(db)
		Expect(err).NotTo(HaveOccurred())
		depts := deptPostgres.NewDeptRepository(db, sdb)

		authSvc = auth.NewService(authPostgres.NewRepository(db), nil, bcrypt.MinCost, testutil.SuperuserID, discardLogger)
		roles = role.NewService(rolePostgres.NewRoleRepository(db), discardLogger)
		posts = post.NewService(postPostgres.NewPostRepository(db), discardLogger)
		publisher = &recordingPublisher{}

		svc = user.NewService(user.Dependencies{
			Repo:      userPostgres.NewUserRepository(db),
			Guard:     auth.NewDataScopeGuard(depts, testutil.SuperuserID, discardLogger),
			Perms:     auth.NewPermissionChecker(discardLogger),
			Roles:     roles,
			Posts:     posts,
			Depts:     depts,
			Hasher:    authSvc,
			Publisher: publisher,
			Logger:    discardLogger,
		})
	})

	Describe("Create", func() {
		newUser := func(name string) user.CreateUserDTO {
			return user.CreateUserDTO{
				DeptID:   testutil.DeptEngineering,
				UserName: name,
				NickName: "New " + name,
				Password: "hunter22",
			}
		}

		It("creates the user with roles and posts in one go", func() {
			dto := newUser("alice")
			dto.Phone = "13800000000"
			dto.RoleIDs = []int64{testutil.RoleDeptOnly, testutil.RoleDeptOnly, testutil.RoleSelfOnly}
			dto.PostIDs = []int64{testutil.PostEngineer}

			rows, err := svc.Create(ctx, principal(idAdmin), dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal(int64(1)))

			var m userDatamodel.SysUser
			Expect(db.Where("user_name = ?", "alice").First(&m).Error).To(Succeed())
			Expect(m.CreateBy).To(Equal("admin"))
			Expect(m.Status).To(Equal(user.StatusActive))
			Expect(m.Password).NotTo(Equal("hunter22"))
			Expect(auth.VerifyPassword(m.Password, "hunter22")).To(Succeed())

			Expect(roleIDsOf(m.ID)).To(Equal([]int64{testutil.RoleDeptOnly, testutil.RoleSelfOnly}))
			postIDs, err := posts.PostIDsByUser(ctx, m.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(postIDs).To(Equal([]int64{testutil.PostEngineer}))
			Expect(publisher.Types()).To(ContainElement(events.EventTypeUserCreated))
		})

		It("rejects a taken user name with a conflict naming the field", func() {
			_, err := svc.Create(ctx, principal(idAdmin), newUser("sales_rep"))
			Expect(err).To(MatchError(ContainSubstring("add user 'sales_rep' failed: user name already exists")))
			Expect(appErrors.IsType(err, appErrors.ErrorTypeConflict)).To(BeTrue())
		})

		It("checks phone before email", func() {
			first := newUser("bob")
			first.Phone = "13900000000"
			first.Email = "bob@example.com"
			_, err := svc.Create(ctx, principal(idAdmin), first)
			Expect(err).NotTo(HaveOccurred())

			second := newUser("carol")
			second.Phone = "13900000000"
			second.Email = "bob@example.com"
			_, err = svc.Create(ctx, principal(idAdmin), second)
			appErr, ok := appErrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(appErrors.ErrCodePhoneTaken))
			Expect(appErr.Message).To(Equal("add user 'carol' failed: phone number already exists"))
		})

		It("lets any number of users leave phone and email blank", func() {
			for _, name := range []string{"dave", "erin", "frank"} {
				_, err := svc.Create(ctx, principal(idAdmin), newUser(name))
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("leaves exactly one user when identical creates race", func() {
			const workers = 5
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
				conflicts int
			)
			p := principal(idAdmin)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := svc.Create(ctx, p, newUser("racer"))
					mu.Lock()
					defer mu.Unlock()
					if err == nil {
						successes++
					} else if appErrors.IsType(err, appErrors.ErrorTypeConflict) {
						conflicts++
					}
				}()
			}
			wg.Wait()

			Expect(successes).To(Equal(1))
			Expect(conflicts).To(Equal(workers - 1))
			var count int64
			Expect(db.Model(&userDatamodel.SysUser{}).Where("user_name = ?", "racer").Count(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(1)))
		})

		It("allows the name of a deleted user to be reused", func() {
			_, err := svc.Delete(ctx, principal(idAdmin), []int64{idSalesRep})
			Expect(err).NotTo(HaveOccurred())

			rows, err := svc.Create(ctx, principal(idAdmin), newUser("sales_rep"))
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal(int64(1)))
		})

		It("keeps the superuser role away from other admins", func() {
			dto := newUser("grace")
			dto.RoleIDs = []int64{testutil.RoleAdmin}
			_, err := svc.Create(ctx, principal(idRoleAdmin), dto)
			Expect(err).To(MatchError(appErrors.ErrPermissionDenied))
		})

		It("refuses departments outside the creator's scope", func() {
			dto := newUser("heidi")
			dto.DeptID = testutil.DeptSales
			_, err := svc.Create(ctx, principal(idClerk), dto)
			Expect(err).To(MatchError(appErrors.ErrPermissionDenied))
		})

		It("refuses users without a department to scope limited creators", func() {
			dto := newUser("orphan")
			dto.DeptID = 0

			_, err := svc.Create(ctx, principal(idClerk), dto)
			Expect(err).To(MatchError(appErrors.ErrPermissionDenied))

			var count int64
			Expect(db.Model(&userDatamodel.SysUser{}).Where("user_name = ?", "orphan").Count(&count).Error).To(Succeed())
			Expect(count).To(BeZero())

			_, err = svc.Create(ctx, principal(idAdmin), dto)
			Expect(err).NotTo(HaveOccurred())
		})

		It("fails on unknown roles without creating the user", func() {
			dto := newUser("ivan")
			dto.RoleIDs = []int64{testutil.RoleDeptOnly, 99}
			_, err := svc.Create(ctx, principal(idAdmin), dto)
			Expect(err).To(MatchError(appErrors.ErrRoleNotFound))

			var count int64
			Expect(db.Model(&userDatamodel.SysUser{}).Where("user_name = ?", "ivan").Count(&count).Error).To(Succeed())
			Expect(count).To(BeZero())
		})

		It("validates the payload", func() {
			dto := newUser("judy")
			dto.Password = "abc"
			_, err := svc.Create(ctx, principal(idAdmin), dto)
			Expect(appErrors.IsType(err, appErrors.ErrorTypeValidation)).To(BeTrue())
		})

		It("requires the add permission", func() {
			_, err := svc.Create(ctx, principal(idSalesRep), newUser("mallory"))
			Expect(err).To(MatchError(appErrors.ErrPermissionDenied))
		})
	})

	Describe("Update", func() {
		update := func(m *userDatamodel.SysUser) user.UpdateUserDTO {
			return user.UpdateUserDTO{
				UserID:   m.ID,
				DeptID:   m.DeptID,
				UserName: m.UserName,
				NickName: m.NickName,
				Email:    m.Email,
				Phone:    m.Phone,
				Sex:      m.Sex,
				Status:   m.Status,
			}
		}

		It("never conflicts with the user's own values", func() {
			dto := update(loadUser(idEngDev))
			dto.NickName = "Renamed"

			rows, err := svc.Update(ctx, principal(idAdmin), dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal(int64(1)))
			Expect(loadUser(idEngDev).NickName).To(Equal("Renamed"))
			Expect(loadUser(idEngDev).UpdateBy).To(Equal("admin"))
		})

		It("conflicts when taking another user's name", func() {
			dto := update(loadUser(idEngDev))
			dto.UserName = "eng_clerk"

			_, err := svc.Update(ctx, principal(idAdmin), dto)
			Expect(err).To(MatchError(ContainSubstring("modify user 'eng_clerk' failed: user name already exists")))
		})

		It("leaves role associations untouched", func() {
			before := roleIDsOf(idClerk)
			dto := update(loadUser(idClerk))
			dto.Remark = "still a clerk"

			_, err := svc.Update(ctx, principal(idAdmin), dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(roleIDsOf(idClerk)).To(Equal(before))
		})

		It("protects the superuser from other admins", func() {
			dto := update(loadUser(idAdmin))
			dto.NickName = "pwned"

			_, err := svc.Update(ctx, principal(idRoleAdmin), dto)
			Expect(err).To(MatchError(appErrors.ErrPermissionDenied))
			Expect(loadUser(idAdmin).NickName).To(Equal("admin"))
		})

		It("keeps department-only scope out of sibling and child departments", func() {
			clerk := principal(idClerk)

			_, err := svc.Update(ctx, clerk, update(loadUser(idSalesRep)))
			Expect(err).To(MatchError(appErrors.ErrPermissionDenied))

			_, err = svc.Update(ctx, clerk, update(loadUser(idBackendDev)))
			Expect(err).To(MatchError(appErrors.ErrPermissionDenied))

			_, err = svc.Update(ctx, clerk, update(loadUser(idEngDev)))
			Expect(err).NotTo(HaveOccurred())
		})

		It("refuses moving a user into a department outside scope", func() {
			dto := update(loadUser(idEngDev))
			dto.DeptID = testutil.DeptSales

			_, err := svc.Update(ctx, principal(idClerk), dto)
			Expect(err).To(MatchError(appErrors.ErrPermissionDenied))
		})

		It("keeps the current department when dept_id is omitted", func() {
			dto := update(loadUser(idEngDev))
			dto.DeptID = 0
			dto.NickName = "Kept"

			rows, err := svc.Update(ctx, principal(idClerk), dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal(int64(1)))

			stored := loadUser(idEngDev)
			Expect(stored.DeptID).To(Equal(testutil.DeptEngineering))
			Expect(stored.NickName).To(Equal("Kept"))

			_, err = svc.GetUser(ctx, principal(idClerk), idEngDev, false)
			Expect(err).NotTo(HaveOccurred())
		})

		It("reports a missing user only to principals with full scope", func() {
			dto := user.UpdateUserDTO{UserID: 404, UserName: "ghost", NickName: "ghost"}

			_, err := svc.Update(ctx, principal(idAdmin), dto)
			Expect(err).To(MatchError(appErrors.ErrUserNotFound))

			_, err = svc.Update(ctx, principal(idClerk), dto)
			Expect(err).To(MatchError(appErrors.ErrPermissionDenied))
		})
	})

	Describe("Delete", func() {
		It("always rejects deleting oneself", func() {
			_, err := svc.Delete(ctx, principal(idAdmin), []int64{idEngDev, idAdmin})
			Expect(err).To(MatchError(appErrors.ErrSelfDelete))

			_, err = svc.Delete(ctx, principal(idClerk), []int64{idClerk})
			Expect(err).To(MatchError(appErrors.ErrSelfDelete))

			var count int64
			Expect(db.Model(&userDatamodel.SysUser{}).Where("user_id IN ?", []int64{idEngDev, idAdmin, idClerk}).Count(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(3)))
		})

		It("soft-deletes users, drops their links and skips unknown ids", func() {
			rows, err := svc.Delete(ctx, principal(idAdmin), []int64{idClerk, 999})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal(int64(1)))

			Expect(loadUser(idClerk).DeletedAt.Valid).To(BeTrue())
			Expect(roleIDsOf(idClerk)).To(BeEmpty())

			var roleCount int64
			Expect(db.Model(&roleDatamodel.SysRole{}).Count(&roleCount).Error).To(Succeed())
			Expect(roleCount).To(Equal(int64(5)))
			Expect(publisher.Types()).To(ContainElement(events.EventTypeUserDeleted))
		})

		It("rejects the whole batch when one target is out of scope", func() {
			_, err := svc.Delete(ctx, principal(idClerk), []int64{idEngDev, idSalesRep})
			Expect(err).To(MatchError(appErrors.ErrPermissionDenied))
			Expect(loadUser(idEngDev).DeletedAt.Valid).To(BeFalse())
		})

		It("protects the superuser account", func() {
			_, err := svc.Delete(ctx, principal(idRoleAdmin), []int64{idAdmin})
			Expect(err).To(MatchError(appErrors.ErrPermissionDenied))
		})
	})

	Describe("ResetPassword", func() {
		It("stores only the new hash", func() {
			before := loadUser(idEngDev)
			rows, err := svc.ResetPassword(ctx, principal(idAdmin), user.ResetPasswordDTO{UserID: idEngDev, Password: "n3wpass"})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal(int64(1)))

			after := loadUser(idEngDev)
			Expect(auth.VerifyPassword(after.Password, "n3wpass")).To(Succeed())
			Expect(after.NickName).To(Equal(before.NickName))
			Expect(after.Status).To(Equal(before.Status))
		})

		It("denies resetting the superuser's password", func() {
			_, err := svc.ResetPassword(ctx, principal(idRoleAdmin), user.ResetPasswordDTO{UserID: idAdmin, Password: "n3wpass"})
			Expect(err).To(MatchError(appErrors.ErrPermissionDenied))
		})
	})

	Describe("ChangeStatus", func() {
		It("lets a manager disable users below their department", func() {
			rows, err := svc.ChangeStatus(ctx, principal(idManager), user.ChangeStatusDTO{UserID: idBackendDev, Status: user.StatusDisabled})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(Equal(int64(1)))
			Expect(loadUser(idBackendDev).Status).To(Equal(user.StatusDisabled))
		})

		It("denies out of scope targets and leaves the status alone", func() {
			_, err := svc.ChangeStatus(ctx, principal(idClerk), user.ChangeStatusDTO{UserID: idSalesRep, Status: user.StatusDisabled})
			Expect(err).To(MatchError(appErrors.ErrPermissionDenied))
			Expect(loadUser(idSalesRep).Status).To(Equal(user.StatusActive))
		})

		It("rejects unknown statuses", func() {
			_, err := svc.ChangeStatus(ctx, principal(idAdmin), user.ChangeStatusDTO{UserID: idSalesRep, Status: "2"})
			Expect(appErrors.IsType(err, appErrors.ErrorTypeValidation)).To(BeTrue())
		})
	})

	Describe("AssignRoles", func() {
		It("replaces all roles and collapses duplicates", func() {
			admin := principal(idAdmin)

			Expect(svc.AssignRoles(ctx, admin, user.AssignRolesDTO{UserID: idEngDev, RoleIDs: []int64{3, 2, 3, 2}})).To(Succeed())
			Expect(roleIDsOf(idEngDev)).To(Equal([]int64{2, 3}))

			Expect(svc.AssignRoles(ctx, admin, user.AssignRolesDTO{UserID: idEngDev, RoleIDs: []int64{4}})).To(Succeed())
			Expect(roleIDsOf(idEngDev)).To(Equal([]int64{4}))

			Expect(svc.AssignRoles(ctx, admin, user.AssignRolesDTO{UserID: idEngDev})).To(Succeed())
			Expect(roleIDsOf(idEngDev)).To(BeEmpty())
		})

		It("rolls back when a role does not exist", func() {
			admin := principal(idAdmin)
			Expect(svc.AssignRoles(ctx, admin, user.AssignRolesDTO{UserID: idEngDev, RoleIDs: []int64{2}})).To(Succeed())

			err := svc.AssignRoles(ctx, admin, user.AssignRolesDTO{UserID: idEngDev, RoleIDs: []int64{3, 99}})
			Expect(err).To(MatchError(appErrors.ErrRoleNotFound))
			Expect(roleIDsOf(idEngDev)).To(Equal([]int64{2}))
		})

		It("denies granting the superuser role to non-superusers", func() {
			err := svc.AssignRoles(ctx, principal(idRoleAdmin), user.AssignRolesDTO{UserID: idEngDev, RoleIDs: []int64{testutil.RoleAdmin}})
			Expect(err).To(MatchError(appErrors.ErrPermissionDenied))
			Expect(roleIDsOf(idEngDev)).To(BeEmpty())
		})

		It("denies touching the superuser's roles", func() {
			err := svc.AssignRoles(ctx, principal(idRoleAdmin), user.AssignRolesDTO{UserID: idAdmin, RoleIDs: []int64{2}})
			Expect(err).To(MatchError(appErrors.ErrPermissionDenied))
			Expect(roleIDsOf(idAdmin)).To(Equal([]int64{testutil.RoleAdmin}))
		})
	})

	Describe("AssignPosts", func() {
		It("replaces posts and rolls back on unknown ids", func() {
			admin := principal(idAdmin)
			Expect(svc.AssignPosts(ctx, admin, user.AssignPostsDTO{UserID: idEngDev, PostIDs: []int64{testutil.PostCEO, testutil.PostEngineer}})).To(Succeed())

			err := svc.AssignPosts(ctx, admin, user.AssignPostsDTO{UserID: idEngDev, PostIDs: []int64{77}})
			Expect(err).To(MatchError(appErrors.ErrPostNotFound))

			ids, err := posts.PostIDsByUser(ctx, idEngDev)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(Equal([]int64{testutil.PostCEO, testutil.PostEngineer}))
		})
	})

	Describe("AuthRoles", func() {
		It("flags held roles and hides the superuser role from other admins", func() {
			info, err := svc.AuthRoles(ctx, principal(idRoleAdmin), idClerk)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.User.ID).To(Equal(idClerk))

			flagged := map[int64]bool{}
			for _, r := range info.Roles {
				Expect(r.IsAdmin).To(BeFalse())
				flagged[r.ID] = r.Flag
			}
			Expect(flagged).To(HaveLen(4))
			Expect(flagged[testutil.RoleDeptOnly]).To(BeTrue())
			Expect(flagged[testutil.RoleSelfOnly]).To(BeFalse())
		})
	})

	Describe("GetUser", func() {
		It("returns the user alone without associations", func() {
			info, err := svc.GetUser(ctx, principal(idAdmin), idClerk, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.User.UserName).To(Equal("eng_clerk"))
			Expect(info.Roles).To(BeNil())
		})

		It("loads associations and choices together", func() {
			info, err := svc.GetUser(ctx, principal(idAdmin), idClerk, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.RoleIDs).To(Equal([]int64{testutil.RoleDeptOnly}))
			Expect(info.Roles).To(HaveLen(5))
			Expect(info.Posts).To(HaveLen(2))
		})

		It("returns form data for a new user", func() {
			info, err := svc.GetUser(ctx, principal(idManager), 0, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.User).To(BeNil())
			Expect(info.Roles).To(HaveLen(4))
		})

		It("hides the superuser from everyone else", func() {
			_, err := svc.GetUser(ctx, principal(idRoleAdmin), idAdmin, false)
			Expect(err).To(MatchError(appErrors.ErrPermissionDenied))
		})

		It("hides the superuser role id from other callers", func() {
			Expect(db.Create(&userDatamodel.SysUserRole{UserID: idRoleAdmin, RoleID: testutil.RoleDeptOnly}).Error).To(Succeed())

			info, err := svc.GetUser(ctx, principal(idRoleAdmin), idRoleAdmin, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.RoleIDs).To(Equal([]int64{testutil.RoleDeptOnly}))

			info, err = svc.GetUser(ctx, principal(idAdmin), idRoleAdmin, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.RoleIDs).To(ConsistOf(testutil.RoleAdmin, testutil.RoleDeptOnly))
		})
	})

	Describe("Options", func() {
		optionIDs := func(opts []*user.Option) []int64 {
			out := make([]int64, 0, len(opts))
			for _, o := range opts {
				out = append(out, o.UserID)
			}
			return out
		}

		It("returns only the users within scope", func() {
			opts, err := svc.Options(ctx, principal(idClerk))
			Expect(err).NotTo(HaveOccurred())
			Expect(optionIDs(opts)).To(Equal([]int64{idClerk, idManager, idEngDev}))
			Expect(opts[0].UserName).To(Equal("eng_clerk"))
			Expect(opts[0].NickName).To(Equal("eng_clerk"))

			opts, err = svc.Options(ctx, principal(idMember))
			Expect(err).NotTo(HaveOccurred())
			Expect(optionIDs(opts)).To(Equal([]int64{idMember}))

			opts, err = svc.Options(ctx, principal(idAdmin))
			Expect(err).NotTo(HaveOccurred())
			Expect(opts).To(HaveLen(9))
		})

		It("requires the list permission", func() {
			_, err := svc.Options(ctx, principal(idSalesRep))
			Expect(err).To(MatchError(appErrors.ErrPermissionDenied))
		})
	})

	DescribeTable("denies every target operation on the superuser to other admins",
		func(op func(p *auth.Principal) error) {
			before := loadUser(idAdmin)
			beforeRoles := roleIDsOf(idAdmin)

			Expect(op(principal(idRoleAdmin))).To(MatchError(appErrors.ErrPermissionDenied))

			after := loadUser(idAdmin)
			Expect(after.NickName).To(Equal(before.NickName))
			Expect(after.Status).To(Equal(before.Status))
			Expect(after.Password).To(Equal(before.Password))
			Expect(after.DeletedAt.Valid).To(BeFalse())
			Expect(roleIDsOf(idAdmin)).To(Equal(beforeRoles))
		},
		Entry("GetUser", func(p *auth.Principal) error {
			_, err := svc.GetUser(ctx, p, idAdmin, true)
			return err
		}),
		Entry("Update", func(p *auth.Principal) error {
			_, err := svc.Update(ctx, p, user.UpdateUserDTO{UserID: idAdmin, UserName: "admin", NickName: "pwned"})
			return err
		}),
		Entry("Delete", func(p *auth.Principal) error {
			_, err := svc.Delete(ctx, p, []int64{idAdmin})
			return err
		}),
		Entry("ResetPassword", func(p *auth.Principal) error {
			_, err := svc.ResetPassword(ctx, p, user.ResetPasswordDTO{UserID: idAdmin, Password: "n3wpass"})
			return err
		}),
		Entry("ChangeStatus", func(p *auth.Principal) error {
			_, err := svc.ChangeStatus(ctx, p, user.ChangeStatusDTO{UserID: idAdmin, Status: user.StatusDisabled})
			return err
		}),
		Entry("AuthRoles", func(p *auth.Principal) error {
			_, err := svc.AuthRoles(ctx, p, idAdmin)
			return err
		}),
		Entry("AssignRoles", func(p *auth.Principal) error {
			return svc.AssignRoles(ctx, p, user.AssignRolesDTO{UserID: idAdmin, RoleIDs: []int64{testutil.RoleSelfOnly}})
		}),
		Entry("AssignPosts", func(p *auth.Principal) error {
			return svc.AssignPosts(ctx, p, user.AssignPostsDTO{UserID: idAdmin, PostIDs: []int64{testutil.PostCEO}})
		}),
	)

	Describe("List", func() {
		ids := func(result *user.ListResult) []int64 {
			out := make([]int64, 0, len(result.Rows))
			for _, u := range result.Rows {
				out = append(out, u.ID)
			}
			return out
		}

		It("intersects every query with the principal's scope", func() {
			result, err := svc.List(ctx, principal(idClerk), user.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(result)).To(Equal([]int64{idClerk, idManager, idEngDev}))

			result, err = svc.List(ctx, principal(idManager), user.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(result)).To(Equal([]int64{idClerk, idManager, idMember, idBackendDev, idEngDev}))

			result, err = svc.List(ctx, principal(idMember), user.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(result)).To(Equal([]int64{idMember}))

			result, err = svc.List(ctx, principal(idAuditor), user.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(result)).To(Equal([]int64{idSalesRep}))
		})

		It("filters by department subtree and name with a total", func() {
			result, err := svc.List(ctx, principal(idAdmin), user.ListQuery{DeptID: testutil.DeptEngineering, UserName: "eng", Limit: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Total).To(Equal(int64(3)))
			Expect(ids(result)).To(Equal([]int64{idClerk}))
		})

		It("requires the list permission", func() {
			_, err := svc.List(ctx, principal(idSalesRep), user.ListQuery{})
			Expect(err).To(MatchError(appErrors.ErrPermissionDenied))
		})
	})
})
