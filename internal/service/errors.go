package service

type ErrMissingRepoURL struct{}

func (e ErrMissingRepoURL) Error() string {
	return "a repository URL is required to trigger a build"
}

func NewErrMissingRepoURL() *ErrMissingRepoURL {
	return &ErrMissingRepoURL{}
}
