// Package git keeps retention policy files in sync with a Git repository.
//
// A Repository clones the remote once and pulls on demand. A Watcher polls
// the repository on an interval and calls a ReloadCallback whenever a pull
// touches a .yaml or .yml file. When the callback rejects the new policy set
// the working tree is checked out at the last commit that loaded cleanly,
// so the engine keeps running on known-good policies.
//
//	repo, err := git.NewRepository(&git.Config{
//		Repository: "https://github.com/example/retention-policies.git",
//		Branch:     "main",
//		Path:       "policies",
//	})
//	if err != nil {
//		return err
//	}
//	if err := repo.Clone(ctx); err != nil {
//		return err
//	}
//	w := git.NewWatcher(repo, time.Minute, 30*time.Second, manager.ReloadFrom)
//	if err := w.Start(ctx); err != nil {
//		return err
//	}
//	defer w.Stop()
package git
