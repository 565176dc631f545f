// Copyright © 2017 Genome Research Limited
// Author: Sendu Bala <sb10@sanger.ac.uk>.
//
//  This file is part of dlcache.
//
//  dlcache is free software: you can redistribute it and/or modify
//  it under the terms of the GNU Lesser General Public License as published by
//  the Free Software Foundation, either version 3 of the License, or
//  (at your option) any later version.
//
//  dlcache is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU Lesser General Public License for more details.
//
//  You should have received a copy of the GNU Lesser General Public License
//  along with dlcache. If not, see <http://www.gnu.org/licenses/>.

package dlcache

import (
	"github.com/inconshreveable/log15"
	"github.com/sb10/l15h"
)

var (
	logHandlerSetter = l15h.NewChanger(log15.DiscardHandler())
	pkgLogger        = log15.New("pkg", "dlcache")
)

func init() {
	pkgLogger.SetHandler(l15h.ChangeableHandler(logHandlerSetter))
}

// SetLogHandler defines how log messages (globally for this package) are
// logged. Logs are always retrievable as strings from an individual
// Manager using Manager.Logs(), but otherwise by default are discarded. To
// have them logged somewhere as they are emitted, supply a
// github.com/inconshreveable/log15 Handler, eg. log15.StderrHandler.
func SetLogHandler(h log15.Handler) {
	logHandlerSetter.SetHandler(h)
}

// newLogStore builds the per-Manager in-memory log store and logger.
func newLogStore(context string, verbose bool) (logger log15.Logger, store *l15h.Store) {
	logger = pkgLogger.New("base", context)
	store = l15h.NewStore()

	logLevel := log15.LvlError
	if verbose {
		logLevel = log15.LvlInfo
	}
	l15h.AddHandler(logger, log15.LvlFilterHandler(logLevel, l15h.CallerInfoHandler(l15h.StoreHandler(store, log15.LogfmtFormat()))))
	return
}
