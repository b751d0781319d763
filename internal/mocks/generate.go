package mocks

//go:generate mockery --name KeyValueStore --srcpkg github.com/aevon-lab/knocklog/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
