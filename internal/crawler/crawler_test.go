package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func newTestCrawler(maxPages int) *Crawler {
	return New(Options{MaxContactPages: maxPages})
}

func TestDiscoverEmails_BasePageOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<p>Escreva para Secretaria@Instituicao.org.br</p>
			<img src="logo@2x.png">
		</body></html>`)
	}))
	defer srv.Close()

	emails, err := newTestCrawler(3).DiscoverEmails(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"secretaria@instituicao.org.br"}, emails)
}

func TestDiscoverEmails_FollowsContactPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<a href="/contato">Fale conosco</a>
			<a href="/produtos">Produtos</a>
		</body></html>`)
	})
	mux.HandleFunc("/contato", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>diretoria@exemplo.org</body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	emails, err := newTestCrawler(3).DiscoverEmails(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"diretoria@exemplo.org"}, emails)
}

func TestDiscoverEmails_RespectsContactPageCap(t *testing.T) {
	var extraFetches atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var sb strings.Builder
		sb.WriteString("<html><body>")
		for i := 0; i < 10; i++ {
			fmt.Fprintf(&sb, `<a href="/contato-%d">Contato %d</a>`, i, i)
		}
		sb.WriteString("</body></html>")
		fmt.Fprint(w, sb.String())
	})
	for i := 0; i < 10; i++ {
		path := fmt.Sprintf("/contato-%d", i)
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			extraFetches.Add(1)
			fmt.Fprintf(w, "<html><body>setor%s@exemplo.org</body></html>", r.URL.Path[len("/contato-"):])
		})
	}
	srv := httptest.NewServer(mux)
	defer srv.Close()

	emails, err := newTestCrawler(3).DiscoverEmails(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(3), extraFetches.Load())
	assert.Len(t, emails, 3)
}

func TestDiscoverEmails_ContactPageFailureIsSoft(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			base@exemplo.org
			<a href="/sobre">Sobre nós</a>
			<a href="/equipe">Equipe</a>
		</body></html>`)
	})
	mux.HandleFunc("/sobre", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/equipe", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>equipe@exemplo.org</body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	emails, err := newTestCrawler(3).DiscoverEmails(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"base@exemplo.org", "equipe@exemplo.org"}, emails)
}

func TestDiscoverEmails_BasePageErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestCrawler(3).DiscoverEmails(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")

	srv.Close()
	_, err = newTestCrawler(3).DiscoverEmails(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestDiscoverEmails_SendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, "<html></html>")
	}))
	defer srv.Close()

	c := New(Options{MaxContactPages: 1, UserAgent: "Painel-Instituicoes-RS/1.0"})
	_, err := c.DiscoverEmails(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Painel-Instituicoes-RS/1.0", gotUA)
}

func TestContactLinks(t *testing.T) {
	base, _ := url.Parse("https://exemplo.org/")
	doc, err := html.Parse(strings.NewReader(`<html><body>
		<a href="/contato">X</a>
		<a href="/qualquer">Fale Conosco</a>
		<a href="https://exemplo.org/about">y</a>
		<a href="/noticias">Notícias</a>
		<a href="mailto:a@b.com">Contato</a>
		<a href="#contato">Contato</a>
		<a href="/contato">duplicado</a>
	</body></html>`))
	require.NoError(t, err)

	links := contactLinks(doc, base)
	assert.Equal(t, []string{
		"https://exemplo.org/contato",
		"https://exemplo.org/qualquer",
		"https://exemplo.org/about",
	}, links)
}

func TestVisibleText_SkipsScriptAndStyle(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<html><head>
		<style>body { color: red }</style>
		<script>var x = "ghost@script.com";</script>
	</head><body><p>real@exemplo.org</p></body></html>`))
	require.NoError(t, err)

	text := visibleText(doc)
	assert.Contains(t, text, "real@exemplo.org")
	assert.NotContains(t, text, "ghost@script.com")
	assert.NotContains(t, text, "color: red")
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"exemplo.org", "https://exemplo.org/"},
		{"http://exemplo.org/x", "http://exemplo.org/x"},
		{" https://exemplo.org ", "https://exemplo.org/"},
	}
	for _, tt := range tests {
		got, err := normalizeURL(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := normalizeURL("")
	assert.Error(t, err)
}
