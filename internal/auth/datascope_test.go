package auth

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	appErrors "github.com/frahmantamala/account-admin/internal"
)

// fakeDepts models HQ(1) -> Engineering(2) -> Backend(4), HQ(1) -> Sales(3).
type fakeDepts struct {
	calls int
	fail  bool
}

func (f *fakeDepts) DescendantIDs(ctx context.Context, deptID int64) ([]int64, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("db down")
	}
	switch deptID {
	case 1:
		return []int64{1, 2, 3, 4}, nil
	case 2:
		return []int64{2, 4}, nil
	default:
		return []int64{deptID}, nil
	}
}

var _ = Describe("DataScopeGuard", func() {
	var (
		guard *DataScopeGuard
		depts *fakeDepts
		ctx   context.Context
	)

	principal := func(id, deptID int64, scopes ...DataScope) *Principal {
		p := &Principal{ID: id, UserName: "p", DeptID: deptID}
		for i, s := range scopes {
			p.Roles = append(p.Roles, RoleGrant{RoleID: int64(i + 10), DataScope: s})
		}
		return p
	}

	BeforeEach(func() {
		ctx = context.Background()
		depts = &fakeDepts{}
		guard = NewDataScopeGuard(depts, 1, discardLogger)
	})

	Describe("CheckUserDataScope", func() {
		It("limits department-only scope to the exact department", func() {
			p := principal(7, 2, DataScopeDept)

			Expect(guard.CheckUserDataScope(ctx, p, ScopeTarget{UserID: 20, DeptID: 2})).To(Succeed())
			Expect(guard.CheckUserDataScope(ctx, p, ScopeTarget{UserID: 30, DeptID: 3})).To(MatchError(appErrors.ErrPermissionDenied))
			Expect(guard.CheckUserDataScope(ctx, p, ScopeTarget{UserID: 40, DeptID: 4})).To(MatchError(appErrors.ErrPermissionDenied))
		})

		It("includes descendants for department-and-children scope", func() {
			p := principal(7, 2, DataScopeDeptAndChild)

			Expect(guard.CheckUserDataScope(ctx, p, ScopeTarget{UserID: 40, DeptID: 4})).To(Succeed())
			Expect(guard.CheckUserDataScope(ctx, p, ScopeTarget{UserID: 30, DeptID: 3})).To(MatchError(appErrors.ErrPermissionDenied))
			Expect(depts.calls).To(Equal(2))
		})

		It("limits self scope to the principal's own record", func() {
			p := principal(7, 2, DataScopeSelf)

			Expect(guard.CheckUserDataScope(ctx, p, ScopeTarget{UserID: 7, DeptID: 2})).To(Succeed())
			Expect(guard.CheckUserDataScope(ctx, p, ScopeTarget{UserID: 8, DeptID: 2})).To(MatchError(appErrors.ErrPermissionDenied))
		})

		It("uses the role's department list for custom scope", func() {
			p := &Principal{ID: 7, DeptID: 2, Roles: []RoleGrant{{RoleID: 5, DataScope: DataScopeCustom, CustomDeptIDs: []int64{3}}}}

			Expect(guard.CheckUserDataScope(ctx, p, ScopeTarget{UserID: 30, DeptID: 3})).To(Succeed())
			Expect(guard.CheckUserDataScope(ctx, p, ScopeTarget{UserID: 20, DeptID: 2})).To(MatchError(appErrors.ErrPermissionDenied))
		})

		It("unions the scopes of all roles", func() {
			p := principal(7, 3, DataScopeSelf, DataScopeDept)

			Expect(guard.CheckUserDataScope(ctx, p, ScopeTarget{UserID: 30, DeptID: 3})).To(Succeed())
			Expect(guard.CheckUserDataScope(ctx, p, ScopeTarget{UserID: 7, DeptID: 3})).To(Succeed())
			Expect(guard.CheckUserDataScope(ctx, p, ScopeTarget{UserID: 20, DeptID: 2})).To(MatchError(appErrors.ErrPermissionDenied))
		})

		It("treats a missing department as outside every limited scope", func() {
			for _, s := range []DataScope{DataScopeDept, DataScopeDeptAndChild, DataScopeSelf} {
				p := principal(7, 2, s)
				Expect(guard.CheckUserDataScope(ctx, p, ScopeTarget{DeptID: 0})).To(MatchError(appErrors.ErrPermissionDenied), string(s))
			}
			Expect(guard.CheckUserDataScope(ctx, principal(7, 2, DataScopeAll), ScopeTarget{DeptID: 0})).To(Succeed())
		})

		It("lets whole-system scope see everything", func() {
			p := principal(7, 3, DataScopeDept, DataScopeAll)
			Expect(guard.CheckUserDataScope(ctx, p, ScopeTarget{UserID: 40, DeptID: 4})).To(Succeed())
		})

		It("denies everything to a principal without roles", func() {
			p := principal(7, 2)
			Expect(guard.CheckUserDataScope(ctx, p, ScopeTarget{UserID: 7, DeptID: 2})).To(MatchError(appErrors.ErrPermissionDenied))
		})

		It("always passes the superuser", func() {
			p := principal(1, 1)
			p.Superuser = true
			Expect(guard.CheckUserDataScope(ctx, p, ScopeTarget{UserID: 40, DeptID: 4})).To(Succeed())
		})

		It("surfaces department lookup failures as internal errors", func() {
			depts.fail = true
			err := guard.CheckUserDataScope(ctx, principal(7, 2, DataScopeDeptAndChild), ScopeTarget{UserID: 40, DeptID: 4})
			Expect(appErrors.IsType(err, appErrors.ErrorTypeInternal)).To(BeTrue())
		})

		It("denies a nil principal", func() {
			Expect(guard.CheckUserDataScope(ctx, nil, ScopeTarget{UserID: 1})).To(MatchError(appErrors.ErrPermissionDenied))
		})
	})

	Describe("CheckUserAllowed", func() {
		It("protects the superuser account from any other principal", func() {
			p := principal(7, 1, DataScopeAll)
			Expect(guard.CheckUserAllowed(p, 1)).To(MatchError(appErrors.ErrPermissionDenied))
			Expect(guard.CheckUserAllowed(p, 2)).To(Succeed())
		})

		It("lets the superuser act on its own account", func() {
			p := principal(1, 1)
			p.Superuser = true
			Expect(guard.CheckUserAllowed(p, 1)).To(Succeed())
		})
	})

	Describe("CheckRoleAssignable", func() {
		It("hides the superuser role from non-superusers", func() {
			p := principal(7, 1, DataScopeAll)
			Expect(guard.CheckRoleAssignable(p, 1, true)).To(MatchError(appErrors.ErrPermissionDenied))
			Expect(guard.CheckRoleAssignable(p, 2, false)).To(Succeed())
		})
	})

	Describe("Filter", func() {
		It("deduplicates and sorts department ids", func() {
			p := &Principal{ID: 7, DeptID: 2, Roles: []RoleGrant{
				{RoleID: 1, DataScope: DataScopeDeptAndChild},
				{RoleID: 2, DataScope: DataScopeCustom, CustomDeptIDs: []int64{4, 3}},
			}}

			f, err := guard.Filter(ctx, p)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.All).To(BeFalse())
			Expect(f.DeptIDs).To(Equal([]int64{2, 3, 4}))
			Expect(f.UserID).To(BeZero())
		})

		It("is empty without roles", func() {
			f, err := guard.Filter(ctx, principal(7, 2))
			Expect(err).NotTo(HaveOccurred())
			Expect(f.Empty()).To(BeTrue())
		})
	})
})
