package plugin

import "path/filepath"

var cmakeStatic = [][]string{
	{"cmake", "-S", ".", "-B", "build", "-DBUILD_SHARED_LIBS=OFF", "-DCMAKE_BUILD_TYPE=Release"},
	{"cmake", "--build", "build", "--parallel"},
}

func init() {
	Register("nlohmann/json", func(env *Env) Dependency {
		g := NewGitHub(env, "nlohmann/json")
		g.IncsFor = func(path string) []string {
			return []string{filepath.Join(path, "include")}
		}

		return g
	})

	Register("chriskohlhoff/asio", func(env *Env) Dependency {
		g := NewGitHub(env, "chriskohlhoff/asio")
		g.FlagsFor = func(string) []string {
			return []string{"-DASIO_STANDALONE"}
		}
		g.IncsFor = func(path string) []string {
			return []string{filepath.Join(path, "asio", "include")}
		}

		return g
	})

	Register("stevengj/nlopt", func(env *Env) Dependency {
		g := NewGitHub(env, "stevengj/nlopt")
		g.Build = cmakeStatic
		g.LibsFor = func(path string) []string {
			return []string{filepath.Join(path, "build", "libnlopt.a"), "-lm"}
		}
		g.IncsFor = func(path string) []string {
			return []string{filepath.Join(path, "build"), filepath.Join(path, "src", "api")}
		}

		return g
	})

	Register("machinezone/IXWebSocket", func(env *Env) Dependency {
		g := NewGitHub(env, "machinezone/IXWebSocket")
		g.Build = cmakeStatic
		g.LibsFor = func(path string) []string {
			return []string{
				filepath.Join(path, "build", "libixwebsocket.a"),
				"-lpthread", "-lssl", "-lcrypto", "-lz",
			}
		}
		g.IncsFor = func(path string) []string {
			return []string{path}
		}

		return g
	})

	Register("curl/curl", func(*Env) Dependency {
		return &System{flags: []string{"-Wl,--no-as-needed", "-lcurl"}}
	})

	Register("fltk/fltk", func(env *Env) Dependency {
		return &ConfigTool{
			Tool: "fltk-config",
			Args: []string{"--cxxflags", "--ldflags"},
			env:  env,
		}
	})
}
