package httpapi

import (
	"net/url"
	"strconv"

	"github.com/gensou-revival/lobby-backend/internal/lobby"
)

// Form fields arrive as strings; the core only sees the typed records below.

func formInt(form url.Values, key string) (int, bool) {
	if !form.Has(key) {
		return 0, false
	}
	n, err := strconv.Atoi(form.Get(key))
	if err != nil {
		return 0, false
	}
	return n, true
}

func formInt64(form url.Values, key string) (int64, bool) {
	if !form.Has(key) {
		return 0, false
	}
	n, err := strconv.ParseInt(form.Get(key), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func formBool(form url.Values, key string) bool {
	return form.Get(key) == "true"
}

func parseSettings(form url.Values) lobby.Settings {
	t, _ := formInt64(form, "time")
	length, _ := formInt(form, "length")
	return lobby.Settings{
		RoomName:    form.Get("roomname"),
		Time:        t,
		Length:      length,
		TakuName:    form.Get("takuname"),
		UseMagic:    formBool(form, "usemagic"),
		RoomComment: form.Get("roomcomment"),
		Password:    formBool(form, "password"),
		Pass:        form.Get("pass"),
	}
}

func parseProfile(form url.Values) lobby.Profile {
	skin, _ := formInt(form, "chara_skin")
	titleType, _ := formInt(form, "titletype")
	return lobby.Profile{
		Hash:      form.Get("hash"),
		Name:      form.Get("name"),
		NameQuote: form.Get("namequote"),
		Pin:       form.Get("pin"),
		Trip:      form.Get("trip"),
		CharaID:   form.Get("chara_id"),
		CharaSkin: skin,
		ChrHash:   form.Get("chrhash"),
		GameVer:   form.Get("gamever"),
		TitleText: form.Get("titletext"),
		TitleType: titleType,
		Places:    form.Get("places"),
		Mode:      form.Get("mode"),
	}
}
