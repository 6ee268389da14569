package mocks

//go:generate mockery --name FailureStore --srcpkg github.com/aevon-lab/profile-relay/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
