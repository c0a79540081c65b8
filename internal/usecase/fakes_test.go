package usecase

import (
	"context"

	"github.com/daito-dot/AI-CONNECTIVE/internal/domain"
	"github.com/daito-dot/AI-CONNECTIVE/internal/integrations/cognito"
	"github.com/daito-dot/AI-CONNECTIVE/internal/repository"
)

type fakeBlobStore struct {
	objects map[string][]byte

	putErr error
	getErr error
	delErr error

	lastPutKey         string
	lastPutContentType string
	deletedKeys        []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(_ context.Context, key string, body []byte, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.lastPutKey = key
	f.lastPutContentType = contentType
	f.objects[key] = body
	return nil
}

func (f *fakeBlobStore) Get(_ context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	body, ok := f.objects[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return body, nil
}

func (f *fakeBlobStore) Delete(_ context.Context, key string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deletedKeys = append(f.deletedKeys, key)
	delete(f.objects, key)
	return nil
}

type fakeFileStore struct {
	records map[string]domain.FileRecord

	owned   []domain.FileRecord
	system  []domain.FileRecord
	org     []domain.FileRecord
	company []domain.FileRecord

	putErr    error
	getErr    error
	listErr   error
	updateErr error
	deleteErr error

	lastPut        *domain.FileRecord
	lastUpdate     *domain.FileRecord
	deletedIDs     []string
	orgQueried     string
	companyQueried string
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{records: make(map[string]domain.FileRecord)}
}

func (f *fakeFileStore) PutFile(_ context.Context, rec domain.FileRecord) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.lastPut = &rec
	f.records[rec.FileID] = rec
	return nil
}

func (f *fakeFileStore) GetFile(_ context.Context, fileID string) (domain.FileRecord, error) {
	if f.getErr != nil {
		return domain.FileRecord{}, f.getErr
	}
	rec, ok := f.records[fileID]
	if !ok {
		return domain.FileRecord{}, repository.ErrNotFound
	}
	return rec, nil
}

func (f *fakeFileStore) ListFilesByOwner(_ context.Context, _ string) ([]domain.FileRecord, error) {
	return f.owned, f.listErr
}

func (f *fakeFileStore) ListFilesSystemVisible(_ context.Context) ([]domain.FileRecord, error) {
	return f.system, f.listErr
}

func (f *fakeFileStore) ListFilesByOrganization(_ context.Context, organizationID string) ([]domain.FileRecord, error) {
	f.orgQueried = organizationID
	return f.org, f.listErr
}

func (f *fakeFileStore) ListFilesByCompany(_ context.Context, companyID string) ([]domain.FileRecord, error) {
	f.companyQueried = companyID
	return f.company, f.listErr
}

func (f *fakeFileStore) UpdateFileVisibility(_ context.Context, rec domain.FileRecord) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.lastUpdate = &rec
	f.records[rec.FileID] = rec
	return nil
}

func (f *fakeFileStore) DeleteFile(_ context.Context, fileID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, fileID)
	delete(f.records, fileID)
	return nil
}

type fakeConvStore struct {
	convs map[string]domain.Conversation
	msgs  map[string][]domain.ConversationMessage

	putConvErr error
	getConvErr error
	putMsgErr  error
	listErr    error
	applyErr   error
	deleteErr  error

	putConvCalls int
	lastTotals   repository.TurnTotals
	appliedConv  string
	deletedConv  string
}

func newFakeConvStore() *fakeConvStore {
	return &fakeConvStore{
		convs: make(map[string]domain.Conversation),
		msgs:  make(map[string][]domain.ConversationMessage),
	}
}

func (f *fakeConvStore) PutConversation(_ context.Context, cv domain.Conversation) error {
	if f.putConvErr != nil {
		return f.putConvErr
	}
	f.putConvCalls++
	f.convs[cv.ConversationID] = cv
	return nil
}

func (f *fakeConvStore) GetConversation(_ context.Context, conversationID string) (domain.Conversation, error) {
	if f.getConvErr != nil {
		return domain.Conversation{}, f.getConvErr
	}
	cv, ok := f.convs[conversationID]
	if !ok {
		return domain.Conversation{}, repository.ErrNotFound
	}
	return cv, nil
}

func (f *fakeConvStore) ListConversationsByUser(_ context.Context, userID string, _ int) ([]domain.Conversation, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Conversation
	for _, cv := range f.convs {
		if cv.UserID == userID {
			out = append(out, cv)
		}
	}
	return out, nil
}

func (f *fakeConvStore) PutMessage(_ context.Context, conversationID string, msg domain.ConversationMessage) error {
	if f.putMsgErr != nil {
		return f.putMsgErr
	}
	f.msgs[conversationID] = append(f.msgs[conversationID], msg)
	return nil
}

func (f *fakeConvStore) ListMessages(_ context.Context, conversationID string) ([]domain.ConversationMessage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.msgs[conversationID], nil
}

func (f *fakeConvStore) ApplyTurn(_ context.Context, conversationID string, totals repository.TurnTotals) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.appliedConv = conversationID
	f.lastTotals = totals
	return nil
}

func (f *fakeConvStore) DeleteConversation(_ context.Context, conversationID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.convs[conversationID]; !ok {
		return repository.ErrNotFound
	}
	f.deletedConv = conversationID
	delete(f.convs, conversationID)
	delete(f.msgs, conversationID)
	return nil
}

type fakeUserStore struct {
	users map[string]domain.User

	putErr    error
	getErr    error
	updateErr error
	listErr   error

	lastPut    *domain.User
	lastFilter repository.UserFilter
	listOut    []domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]domain.User)}
}

func (f *fakeUserStore) PutUser(_ context.Context, u domain.User) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.lastPut = &u
	f.users[u.UserID] = u
	return nil
}

func (f *fakeUserStore) GetUser(_ context.Context, userID string) (domain.User, error) {
	if f.getErr != nil {
		return domain.User{}, f.getErr
	}
	u, ok := f.users[userID]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) UpdateUserName(_ context.Context, userID, name, updatedAt string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Name = name
	u.UpdatedAt = updatedAt
	f.users[userID] = u
	return nil
}

func (f *fakeUserStore) ListUsers(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.lastFilter = filter
	return f.listOut, nil
}

type fakeIdentity struct {
	signUpID        string
	signUpConfirmed bool
	signUpErr       error
	confirmErr      error
	signInTokens    cognito.Tokens
	signInErr       error
	adminCreateID   string
	adminCreateErr  error

	lastSignUpEmail string
	lastAttrs       map[string]string
	lastTempPass    string
}

func (f *fakeIdentity) SignUp(_ context.Context, email, _, _ string) (string, bool, error) {
	f.lastSignUpEmail = email
	return f.signUpID, f.signUpConfirmed, f.signUpErr
}

func (f *fakeIdentity) ConfirmSignUp(_ context.Context, _, _ string) error {
	return f.confirmErr
}

func (f *fakeIdentity) SignIn(_ context.Context, _, _ string) (cognito.Tokens, error) {
	return f.signInTokens, f.signInErr
}

func (f *fakeIdentity) AdminCreateUser(_ context.Context, _, _ string, attrs map[string]string, temporaryPassword string) (string, error) {
	f.lastAttrs = attrs
	f.lastTempPass = temporaryPassword
	return f.adminCreateID, f.adminCreateErr
}

type fakeInvoker struct {
	resp    domain.ChatResponse
	err     error
	lastReq domain.ChatRequest
	calls   int
}

func (f *fakeInvoker) Invoke(_ context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	f.calls++
	f.lastReq = req
	return f.resp, f.err
}

type fakeRAG struct {
	texts map[string]string
	errs  map[string]error
}

func (f *fakeRAG) TextForRAG(_ context.Context, _ domain.Actor, fileID string) (string, error) {
	if err, ok := f.errs[fileID]; ok {
		return "", err
	}
	text, ok := f.texts[fileID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return text, nil
}
