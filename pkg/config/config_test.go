package config

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NewDefaultConfig", func() {
	It("populates every section", func() {
		cfg := NewDefaultConfig()
		Expect(cfg.Version).To(Equal(CurrentV))
		Expect(cfg.Neo4j.URI).To(Equal("bolt://localhost:7687"))
		Expect(cfg.OpenAI.Model).To(Equal("gpt-4o-mini"))
		Expect(cfg.API.Listen).To(Equal(":8080"))
		Expect(cfg.Chat.MaxTurns).To(Equal(20))
		Expect(cfg.Chat.HistoryTurns).To(Equal(10))
		Expect(cfg.Client.APITarget).To(Equal("http://localhost:8080"))
	})
})

var _ = Describe("TOML round trip", func() {
	It("encodes and parses back the same config", func() {
		cfg := NewDefaultConfig()
		cfg.Neo4j.URI = "bolt://graph.internal:7687"
		cfg.OpenAI.MaxTokens = 512

		data, err := EncodeTOML(cfg)
		Expect(err).NotTo(HaveOccurred())

		parsed, err := ParseConfigTOML(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed).To(Equal(cfg))
	})

	It("rejects an unsupported version", func() {
		_, err := ParseConfigTOML([]byte("version = 99\n"))
		Expect(err).To(MatchError(ContainSubstring("unsupported config version")))
	})

	It("rejects malformed TOML", func() {
		_, err := ParseConfigTOML([]byte("version = [broken"))
		Expect(err).To(HaveOccurred())
	})

	It("refuses to encode a nil config", func() {
		_, err := EncodeTOML(nil)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("WriteConfig", func() {
	It("creates the directory and writes config.toml", func() {
		dir := filepath.Join(GinkgoT().TempDir(), "nested")

		path, err := WriteConfig(dir, NewDefaultConfig())
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(dir, "config.toml")))

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("[neo4j]"))
	})
})

var _ = Describe("viper layering", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("applies defaults when no config file exists", func() {
		v, err := InitViper(dir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := FromViper(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Neo4j.URI).To(Equal("bolt://localhost:7687"))
		Expect(cfg.Chat.ContextBudget).To(Equal(4000))
	})

	It("reads values from config.toml", func() {
		custom := NewDefaultConfig()
		custom.Neo4j.URI = "bolt://graph.internal:7687"
		custom.API.Listen = ":9090"
		_, err := WriteConfig(dir, custom)
		Expect(err).NotTo(HaveOccurred())

		v, err := InitViper(dir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := FromViper(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Neo4j.URI).To(Equal("bolt://graph.internal:7687"))
		Expect(cfg.API.Listen).To(Equal(":9090"))
		Expect(cfg.OpenAI.Model).To(Equal("gpt-4o-mini"))
	})

	It("lets environment variables override the file", func() {
		_, err := WriteConfig(dir, NewDefaultConfig())
		Expect(err).NotTo(HaveOccurred())

		GinkgoT().Setenv("OPSGRAPH_NEO4J_URI", "bolt://env.example:7687")
		GinkgoT().Setenv("OPSGRAPH_OPENAI_API_KEY", "sk-from-env")

		v, err := InitViper(dir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := FromViper(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Neo4j.URI).To(Equal("bolt://env.example:7687"))
		Expect(cfg.OpenAI.APIKey).To(Equal("sk-from-env"))
	})

	It("rejects an unsupported version in the file", func() {
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte("version = 7\n"), 0o600)).To(Succeed())

		v, err := InitViper(dir)
		Expect(err).NotTo(HaveOccurred())

		_, err = FromViper(v)
		Expect(err).To(MatchError(ContainSubstring("unsupported config version")))
	})
})
