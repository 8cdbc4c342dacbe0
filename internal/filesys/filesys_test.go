package filesys

import (
	"io/fs"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"
)

type FilesysTestSuite struct {
	suite.Suite
}

func (s *FilesysTestSuite) TestResolve() {
	testCases := []struct {
		name      string
		lookupDir string
		path      string
		expected  string
	}{
		{name: "absolute path ignores lookup dir", lookupDir: "/etc/g3", path: "/var/lib/cert.pem", expected: "/var/lib/cert.pem"},
		{name: "relative path joins lookup dir", lookupDir: "/etc/g3", path: "tls/cert.pem", expected: "/etc/g3/tls/cert.pem"},
		{name: "parent references are cleaned", lookupDir: "/etc/g3/conf.d", path: "../ca.pem", expected: "/etc/g3/ca.pem"},
		{name: "no lookup dir keeps relative", lookupDir: "", path: "./cert.pem", expected: "cert.pem"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Equal(tc.expected, Resolve(tc.lookupDir, tc.path))
		})
	}
}

func (s *FilesysTestSuite) TestOsFSReadsFiles() {
	dir := s.T().TempDir()
	p := Resolve(dir, "g3.yaml")
	s.Require().NoError(os.WriteFile(p, []byte("runtime: {}\n"), 0o600))

	fsys := OS()
	data, err := fsys.ReadFile(p)
	s.Require().NoError(err)
	s.Equal("runtime: {}\n", string(data))

	_, err = fsys.ReadFile(Resolve(dir, "missing.yaml"))
	s.ErrorIs(err, fs.ErrNotExist)
}

func TestFilesysSuite(t *testing.T) {
	suite.Run(t, new(FilesysTestSuite))
}
