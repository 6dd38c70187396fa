package sqlitepath

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recall/pkg/dotdir"
)

var _ = Describe("ResolveSQLitePath", func() {
	var (
		origHome   string
		origXDG    string
		origSQLite string
		origCwd    string
		homeDir    string
		cwd        string
	)

	BeforeEach(func() {
		origHome = os.Getenv("HOME")
		origXDG = os.Getenv("XDG_DATA_HOME")
		origSQLite = os.Getenv(EnvSQLite)
		var err error
		origCwd, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		homeDir, err = os.MkdirTemp("", "recall-home-*")
		Expect(err).NotTo(HaveOccurred())
		homeDir, err = filepath.EvalSymlinks(homeDir)
		Expect(err).NotTo(HaveOccurred())

		cwd, err = os.MkdirTemp("", "recall-cwd-*")
		Expect(err).NotTo(HaveOccurred())

		Expect(os.Setenv("HOME", homeDir)).To(Succeed())
		Expect(os.Setenv("XDG_DATA_HOME", "")).To(Succeed())
		Expect(os.Setenv(EnvSQLite, "")).To(Succeed())
		Expect(os.Chdir(cwd)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Setenv("HOME", origHome)).To(Succeed())
		Expect(os.Setenv("XDG_DATA_HOME", origXDG)).To(Succeed())
		Expect(os.Setenv(EnvSQLite, origSQLite)).To(Succeed())
		Expect(os.Chdir(origCwd)).To(Succeed())
		os.RemoveAll(homeDir)
		os.RemoveAll(cwd)
	})

	It("returns the override untouched", func() {
		Expect(os.Setenv(EnvSQLite, "/tmp/env.db")).To(Succeed())

		path, err := ResolveSQLitePath("/tmp/flag.db", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/flag.db"))
	})

	It("prefers RECALL_SQLITE when set", func() {
		Expect(os.Setenv(EnvSQLite, "/tmp/custom.db")).To(Succeed())

		path, err := ResolveSQLitePath("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/custom.db"))
	})

	It("resolves ~/.recall/recall.db when present", func() {
		dbPath := filepath.Join(homeDir, ".recall", dotdir.DatabaseFile)
		Expect(os.MkdirAll(filepath.Dir(dbPath), 0o755)).To(Succeed())
		Expect(os.WriteFile(dbPath, []byte("test"), 0o644)).To(Succeed())

		path, err := ResolveSQLitePath("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(dbPath))
	})

	It("places the database in an explicit config dir", func() {
		configDir := filepath.Join(cwd, "cfg")

		path, err := ResolveSQLitePath("", configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(HaveSuffix(filepath.Join("cfg", dotdir.DatabaseFile)))
		Expect(configDir).To(BeADirectory())
	})

	It("falls back to the home .recall dir", func() {
		path, err := ResolveSQLitePath("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(homeDir, ".recall", dotdir.DatabaseFile)))
	})
})
