package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"sigil/internal/identity/handler/mocks"
	"sigil/internal/identity/models"
	id "sigil/pkg/domain"
	dErrors "sigil/pkg/domain-errors"
	authmw "sigil/pkg/platform/middleware/auth"
	"sigil/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	svc    *mocks.MockService
	router chi.Router
	// principal is attached to every request when non-nil.
	principal *authmw.Principal
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.svc = mocks.NewMockService(ctrl)
	s.principal = &authmw.Principal{UserID: 1, IsAdmin: true}

	h := New(s.svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.RegisterAuthenticated(r)
	h.RegisterAdmin(r)
	s.router = r
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	req := testutil.JSONRequest(s.T(), method, path, body)
	if s.principal != nil {
		req = testutil.AsUser(req, s.principal)
	}
	return testutil.Serve(s.router, req)
}

func (s *HandlerSuite) data(rec *httptest.ResponseRecorder) map[string]any {
	return testutil.Data(s.T(), rec)
}

func (s *HandlerSuite) TestCurrentUser() {
	s.Run("returns the signed-in user", func() {
		s.svc.EXPECT().GetUser(gomock.Any(), id.UserID(1)).Return(&models.User{ID: 1, Username: "root"}, nil)
		rec := s.do(http.MethodGet, "/v1/user", "")
		s.Equal(http.StatusOK, rec.Code)
		data := s.data(rec)
		s.Equal("root", data["username"])
	})

	s.Run("no principal", func() {
		s.principal = nil
		defer func() { s.principal = &authmw.Principal{UserID: 1, IsAdmin: true} }()
		rec := s.do(http.MethodGet, "/v1/user/groups", "")
		testutil.AssertStatusAndError(s.T(), rec, http.StatusUnauthorized, "login_required")
	})
}

func (s *HandlerSuite) TestListUsers() {
	s.svc.EXPECT().ListUsers(gomock.Any()).Return([]*models.User{{ID: 1}, {ID: 2}}, nil)
	rec := s.do(http.MethodGet, "/v1/users", "")
	s.Equal(http.StatusOK, rec.Code)
	data := s.data(rec)
	s.Len(data["users"], 2)
}

func (s *HandlerSuite) TestCreateUser() {
	s.Run("success", func() {
		s.svc.EXPECT().CreateUser(gomock.Any(), models.UserInput{Email: "ada@example.com", Username: "ada", IsAdmin: true}).
			Return(&models.User{ID: 3, Email: "ada@example.com", Username: "ada", IsAdmin: true}, nil)
		rec := s.do(http.MethodPost, "/v1/users", `{"email":"ada@example.com","username":"ada","is_admin":true}`)
		s.Equal(http.StatusOK, rec.Code)
		user := s.data(rec)["user"].(map[string]any)
		s.Equal(float64(3), user["id"])
	})

	s.Run("conflict", func() {
		s.svc.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(nil, dErrors.Of(dErrors.CodeEmailExists))
		rec := s.do(http.MethodPost, "/v1/users", `{"email":"ada@example.com","username":"ada"}`)
		testutil.AssertStatusAndError(s.T(), rec, http.StatusBadRequest, "email_exists")
	})

	s.Run("malformed body", func() {
		rec := s.do(http.MethodPost, "/v1/users", `{"email":`)
		testutil.AssertStatusAndError(s.T(), rec, http.StatusBadRequest, "bad_request")
	})
}

func (s *HandlerSuite) TestGetUser() {
	s.Run("bad id", func() {
		rec := s.do(http.MethodGet, "/v1/users/abc", "")
		testutil.AssertStatusAndError(s.T(), rec, http.StatusBadRequest, "bad_request")
	})

	s.Run("includes groups", func() {
		s.svc.EXPECT().GetUserWithGroups(gomock.Any(), id.UserID(4)).Return(&models.UserWithGroups{
			User:   &models.User{ID: 4},
			Groups: []*models.Group{{ID: 1, Slug: "admin"}},
		}, nil)
		rec := s.do(http.MethodGet, "/v1/users/4", "")
		s.Equal(http.StatusOK, rec.Code)
		data := s.data(rec)
		s.Contains(data, "user")
		s.Len(data["groups"], 1)
	})

	s.Run("internal errors do not leak", func() {
		s.svc.EXPECT().GetUserWithGroups(gomock.Any(), id.UserID(5)).
			Return(nil, dErrors.Internal(errors.New("pq: relation users does not exist"), "failed to load user"))
		rec := s.do(http.MethodGet, "/v1/users/5", "")
		s.Equal(http.StatusInternalServerError, rec.Code)
		s.NotContains(rec.Body.String(), "relation")
	})
}

func (s *HandlerSuite) TestSendRegistrationLink() {
	s.svc.EXPECT().SendRegistrationLink(gomock.Any(), id.UserID(6)).Return(nil)
	rec := s.do(http.MethodPost, "/v1/users/6/send-registration-link", "")
	s.Equal(http.StatusNoContent, rec.Code)
	s.Empty(rec.Body.String())
}

func (s *HandlerSuite) TestGroups() {
	s.Run("update managed group", func() {
		s.svc.EXPECT().UpdateGroup(gomock.Any(), id.GroupID(1), models.GroupInput{Slug: "x", Name: "X"}).
			Return(nil, dErrors.Of(dErrors.CodeManagedObject))
		rec := s.do(http.MethodPatch, "/v1/groups/1", `{"slug":"x","name":"X"}`)
		testutil.AssertStatusAndError(s.T(), rec, http.StatusBadRequest, "managed_object")
	})

	s.Run("add member", func() {
		s.svc.EXPECT().AddMember(gomock.Any(), id.GroupID(2), id.UserID(7)).Return(&models.GroupMembers{
			Group:        &models.Group{ID: 2, Slug: "staff"},
			TargetedUser: &models.User{ID: 7},
			Members:      []*models.User{{ID: 7}},
		}, nil)
		rec := s.do(http.MethodPut, "/v1/groups/2/members/7", "")
		s.Equal(http.StatusOK, rec.Code)
		data := s.data(rec)
		s.Contains(data, "targeted_user")
		s.Len(data["members"], 1)
	})

	s.Run("remove non-member", func() {
		s.svc.EXPECT().RemoveMember(gomock.Any(), id.GroupID(2), id.UserID(8)).
			Return(nil, dErrors.Of(dErrors.CodeUserNotInGroup))
		rec := s.do(http.MethodDelete, "/v1/groups/2/members/8", "")
		testutil.AssertStatusAndError(s.T(), rec, http.StatusBadRequest, "user_not_in_group")
	})

	s.Run("list members omits targeted user", func() {
		s.svc.EXPECT().ListMembers(gomock.Any(), id.GroupID(2)).Return(&models.GroupMembers{
			Group:   &models.Group{ID: 2},
			Members: []*models.User{},
		}, nil)
		rec := s.do(http.MethodGet, "/v1/groups/2/members", "")
		s.Equal(http.StatusOK, rec.Code)
		s.NotContains(s.data(rec), "targeted_user")
	})
}
